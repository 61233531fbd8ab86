package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pingraph/pkg/codec"
	"github.com/matzehuels/pingraph/pkg/store"
)

// storeCommand creates the "store" command group.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage graphs in the configured store",
		Long: `Manage graph documents in the store selected by store.backend
(memory, file, sqlite, redis or mongo).`,
	}

	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storeGetCommand())
	cmd.AddCommand(c.storePutCommand())
	cmd.AddCommand(c.storeRemoveCommand())

	return cmd
}

// storeListCommand creates the "store ls" subcommand.
func (c *CLI) storeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored graphs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			docs, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				printInfo(out, "No graphs stored")
				printNextStep(out, "Store one with", appName+" store put <file>")
				return nil
			}
			fmt.Fprintln(out, documentTable(docs).Render())
			return nil
		},
	}
}

func documentTable(docs []store.Document) *table.Table {
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{
			d.ID,
			d.Name,
			d.Format,
			strconv.Itoa(d.Nodes),
			d.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Name", "Format", "Nodes", "Updated").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return base.Inherit(styleHeader)
			case col == 0:
				return base.Foreground(colorCyan)
			case col >= 2:
				return base.Foreground(colorGray)
			}
			return base
		})
}

// storeGetCommand creates the "store get" subcommand.
func (c *CLI) storeGetCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a stored graph",
		Long: `Fetch a stored graph. Without -o the stored snapshot is written to stdout
as is; with -o it is decoded and written in the format of the file
extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(doc.Data)
				return err
			}
			g, err := doc.Graph(c.Registry)
			if err != nil {
				return err
			}
			if err := c.writeGraph(output, g); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Fetched %s", docLabel(*doc))
			printFile(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a graph file instead of stdout")
	return cmd
}

// storePutCommand creates the "store put" subcommand.
func (c *CLI) storePutCommand() *cobra.Command {
	var id, name string

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Store a graph file",
		Long: `Store a graph file. The snapshot is re-encoded with the configured codec.
Without --id a new id is generated; with an existing id the stored graph
is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.readGraph(args[0])
			if err != nil {
				return err
			}
			cd, err := codec.ByName(c.Config.Codec)
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			doc, err := store.NewDocument(name, cd, g)
			if err != nil {
				return err
			}
			doc.ID = id

			s, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Put(cmd.Context(), doc); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSuccess(out, "Stored %s", docLabel(*doc))
			printKeyValue(out, "ID", doc.ID)
			printKeyValue(out, "Format", doc.Format)
			printKeyValue(out, "Hash", shortHash(doc.Hash))
			printNextStep(out, "Fetch it with", appName+" store get "+doc.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "document id (default: new UUID)")
	cmd.Flags().StringVar(&name, "name", "", "display name (default: file name)")
	return cmd
}

// storeRemoveCommand creates the "store rm" subcommand.
func (c *CLI) storeRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete stored graphs",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			for _, id := range args {
				if err := s.Delete(cmd.Context(), id); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "Deleted %s", id)
			}
			return nil
		},
	}
}

func docLabel(d store.Document) string {
	if d.Name == "" || d.Name == d.ID {
		return d.ID
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.ID)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
