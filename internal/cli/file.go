package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewFileCmd создаёт группу команд для работы с файлами данных.
func NewFileCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Manage data files",
	}

	cmd.AddCommand(
		newFileListCmd(clientFn, outputFn),
		newFileShowCmd(clientFn, outputFn),
		newFileUploadCmd(clientFn, outputFn),
		newFilePreviewCmd(clientFn, outputFn),
		newFileDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func fileRow(f FileResponse) []string {
	return []string{
		f.ID,
		f.Filename,
		f.Source,
		f.Status,
		strconv.FormatInt(f.SizeBytes, 10),
		fmt.Sprintf("%dx%d", f.RowCount, f.ColumnCount),
		f.CreatedAt,
	}
}

var fileHeaders = []string{"ID", "FILENAME", "SOURCE", "STATUS", "SIZE", "ROWSXCOLS", "CREATED"}

func newFileListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status, source string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List data files",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			files, err := client.ListFiles(ListFilesOpts{
				Status: status,
				Source: source,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(files))
			for i, f := range files {
				rows[i] = fileRow(f)
			}

			out.Print(fileHeaders, rows, files)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, PROCESSING, PROCESSED, FAILED, ANNOTATED)")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source (watch, upload)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of files")

	return cmd
}

func newFileShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show data file details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			file, err := client.GetFile(args[0])
			if err != nil {
				return err
			}

			out.Print(fileHeaders, [][]string{fileRow(*file)}, file)
			return nil
		},
	}
}

func newFileUploadCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "upload PATH",
		Short: "Upload a data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			file, err := client.UploadFile(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("File uploaded: %s", file.ID))
			out.Print(fileHeaders, [][]string{fileRow(*file)}, file)
			return nil
		},
	}
}

func newFilePreviewCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "preview ID",
		Short: "Preview first rows of a data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			preview, err := client.PreviewFile(args[0], rows)
			if err != nil {
				return err
			}

			tableRows := make([][]string, len(preview.Rows))
			for i, row := range preview.Rows {
				cells := make([]string, len(row))
				for j, cell := range row {
					if cell == nil {
						cells[j] = ""
						continue
					}
					cells[j] = fmt.Sprintf("%v", cell)
				}
				tableRows[i] = cells
			}

			out.Print(preview.Columns, tableRows, preview)
			return nil
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 0, "Number of rows to preview (default 20)")

	return cmd
}

func newFileDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteFile(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("File deleted: %s", args[0]))
			return nil
		},
	}
}
