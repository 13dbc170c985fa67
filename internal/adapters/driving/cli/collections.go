package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
)

// collectionFlags holds the flag values of one collection command group.
type collectionFlags struct {
	title       string
	description string
	tag         string
	creator     string
	userID      string
	json        bool
}

// collectionFlagSets lists the flag values of every collection group.
var collectionFlagSets []*collectionFlags

func init() {
	rootCmd.AddCommand(newCollectionCmd("contexts", "knowledge context", func() driving.CollectionService {
		return contextService
	}))
	rootCmd.AddCommand(newCollectionCmd("profiles", "chat profile", func() driving.CollectionService {
		return profileService
	}))
}

// newCollectionCmd builds the command group for one collection kind.
// service is resolved at run time since services are installed after init.
func newCollectionCmd(use, noun string, service func() driving.CollectionService) *cobra.Command {
	flags := &collectionFlags{}
	collectionFlagSets = append(collectionFlagSets, flags)

	resolve := func() (driving.CollectionService, error) {
		svc := service()
		if svc == nil {
			return nil, errNotConfigured(noun)
		}
		return svc, nil
	}

	group := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Manage %ss", noun),
		Long: fmt.Sprintf(`Create and manage %ss: named sets of documents converted to
markdown and kept together within a token budget.`, noun),
	}

	createCmd := &cobra.Command{
		Use:   "create FILE...",
		Short: fmt.Sprintf("Create a %s from files", noun),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolve()
			if err != nil {
				return err
			}
			if flags.title == "" {
				return fmt.Errorf("%w: --title is required", domain.ErrInvalidRequest)
			}
			c, err := svc.Create(cmd.Context(), flags.request(args))
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", noun, err)
			}
			return printCollection(cmd, c, flags.json, svc.MaxTokens())
		},
	}
	createCmd.Flags().StringVar(&flags.title, "title", "", "title (required)")
	createCmd.Flags().StringVar(&flags.description, "description", "", "description")
	createCmd.Flags().StringVar(&flags.tag, "tag", "", "tag used to group collections")
	createCmd.Flags().StringVar(&flags.creator, "creator", "", "creator name")
	createCmd.Flags().StringVar(&flags.userID, "user", "", "owning user ID")
	createCmd.Flags().BoolVar(&flags.json, "json", false, "output as JSON")

	updateCmd := &cobra.Command{
		Use:   "update [id] [FILE...]",
		Short: fmt.Sprintf("Update a %s's details or add documents", noun),
		Long: `Changes the title, description or tag when given, and adds each file.
A file whose name matches an existing document replaces it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolve()
			if err != nil {
				return err
			}
			c, err := svc.Update(cmd.Context(), args[0], flags.request(args[1:]))
			if err != nil {
				return fmt.Errorf("failed to update %s: %w", noun, err)
			}
			return printCollection(cmd, c, flags.json, svc.MaxTokens())
		},
	}
	updateCmd.Flags().StringVar(&flags.title, "title", "", "new title")
	updateCmd.Flags().StringVar(&flags.description, "description", "", "new description")
	updateCmd.Flags().StringVar(&flags.tag, "tag", "", "new tag")
	updateCmd.Flags().BoolVar(&flags.json, "json", false, "output as JSON")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %ss", noun),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := resolve()
			if err != nil {
				return err
			}
			cs, err := svc.List(cmd.Context(), flags.tag)
			if err != nil {
				return fmt.Errorf("failed to list %ss: %w", noun, err)
			}
			if flags.json {
				return printJSON(cmd, cs)
			}
			if len(cs) == 0 {
				cmd.Printf("No %ss found.\n", noun)
				return nil
			}
			for i := range cs {
				tag := ""
				if cs[i].Tag != "" {
					tag = mutedStyle.Render(" [" + cs[i].Tag + "]")
				}
				cmd.Printf("%s  %s%s  %d document(s), %d tokens\n",
					cs[i].ID, cs[i].Title, tag, len(cs[i].Documents), cs[i].Tokens)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&flags.tag, "tag", "", "only list collections with this tag")
	listCmd.Flags().BoolVar(&flags.json, "json", false, "output as JSON")

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: fmt.Sprintf("Print a %s with its documents' markdown", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolve()
			if err != nil {
				return err
			}
			content, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", noun, err)
			}
			if flags.json {
				return printJSON(cmd, content)
			}
			cmd.Println(titleStyle.Render(content.Title))
			if content.Description != "" {
				cmd.Println(content.Description)
			}
			fmt.Fprintln(cmd.OutOrStdout(), content.Content)
			return nil
		},
	}
	getCmd.Flags().BoolVar(&flags.json, "json", false, "output as JSON")

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: fmt.Sprintf("Delete a %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolve()
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete %s: %w", noun, err)
			}
			cmd.Printf("Deleted %s %s\n", noun, args[0])
			return nil
		},
	}

	removeDocCmd := &cobra.Command{
		Use:   "remove-doc [id] [document-id]",
		Short: fmt.Sprintf("Remove one document from a %s", noun),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolve()
			if err != nil {
				return err
			}
			c, err := svc.DeleteDocument(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to remove document: %w", err)
			}
			cmd.Printf("Removed %s from %s (%d document(s) left)\n", args[1], c.ID, len(c.Documents))
			return nil
		},
	}

	maxTokensCmd := &cobra.Command{
		Use:   "max-tokens",
		Short: fmt.Sprintf("Print the token budget of a %s", noun),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := resolve()
			if err != nil {
				return err
			}
			cmd.Println(svc.MaxTokens())
			return nil
		},
	}

	group.AddCommand(createCmd, updateCmd, listCmd, getCmd, deleteCmd, removeDocCmd, maxTokensCmd)
	return group
}

// request builds a service request from the flags and file arguments.
func (f *collectionFlags) request(paths []string) driving.CollectionRequest {
	req := driving.CollectionRequest{
		Title:       f.title,
		Description: f.description,
		Tag:         f.tag,
		Creator:     f.creator,
		UserID:      f.userID,
	}
	for _, p := range paths {
		req.Files = append(req.Files, domain.CollectionUpload{Filename: filepath.Base(p), Path: p})
	}
	return req
}

func printCollection(cmd *cobra.Command, c *domain.Collection, asJSON bool, maxTokens int) error {
	if asJSON {
		return printJSON(cmd, c)
	}
	cmd.Printf("%s %s\n", titleStyle.Render(c.Title), mutedStyle.Render(c.ID))
	for _, d := range c.Documents {
		cmd.Printf("  - %s (%s, %d tokens)\n", d.DocumentName, d.ID, d.Tokens)
	}
	cmd.Printf("%d / %d tokens\n", c.Tokens, maxTokens)
	return nil
}
