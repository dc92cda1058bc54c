package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewTaskCmd создаёт группу команд для задач обработки.
func NewTaskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage processing tasks",
	}

	cmd.AddCommand(
		newTaskListCmd(clientFn, outputFn),
		newTaskShowCmd(clientFn, outputFn),
		newTaskSubmitCmd(clientFn, outputFn),
		newTaskExportCmd(clientFn, outputFn),
		newTaskScriptsCmd(clientFn, outputFn),
	)

	return cmd
}

var taskHeaders = []string{"ID", "FILE", "TYPE", "STATUS", "ERROR", "CREATED"}

func taskRow(t TaskResponse) []string {
	return []string{t.ID, t.FileID, t.Type, t.Status, t.Error, t.CreatedAt}
}

func newTaskListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var fileID, procType, status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processing tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.ListTasks(ListTasksOpts{
				FileID: fileID,
				Type:   procType,
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = taskRow(t)
			}

			out.Print(taskHeaders, rows, tasks)
			return nil
		},
	}

	cmd.Flags().StringVar(&fileID, "file", "", "Filter by file ID")
	cmd.Flags().StringVar(&procType, "type", "", "Filter by processing type")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, PROCESSING, COMPLETED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of tasks")

	return cmd
}

func newTaskShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show task details and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			task, err := client.GetTask(args[0])
			if err != nil {
				return err
			}

			out.Print(taskHeaders, [][]string{taskRow(*task)}, task)
			return nil
		},
	}
}

func newTaskSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var procType, paramsJSON string

	cmd := &cobra.Command{
		Use:   "submit FILE_ID",
		Short: "Submit a file for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var params map[string]any
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("invalid --params JSON: %w", err)
				}
			}

			submission, err := client.SubmitProcessing(args[0], ProcessRequest{
				Type:       procType,
				Parameters: params,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task submitted: %s", submission.TaskID))
			out.Print(
				[]string{"TASK_ID", "CORRELATION_ID"},
				[][]string{{submission.TaskID, submission.CorrelationID}},
				submission,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&procType, "type", "", "Processing type: rolling_mean, peak_detection, data_quality, custom (required)")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "Processing parameters as JSON")
	cmd.MarkFlagRequired("type")

	return cmd
}

func newTaskExportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var dest string
	var format string

	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Export task result to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if format != "json" && format != "csv" {
				return fmt.Errorf("format must be json or csv")
			}

			path := dest
			if path == "" {
				path = fmt.Sprintf("result_%s.%s", args[0], format)
			}

			if err := client.ExportTaskResult(args[0], format, path); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Result exported: %s", path))
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "out", "", "Destination path (default result_<id>.<format>)")
	cmd.Flags().StringVar(&format, "format", "json", "Export format: json or csv")

	return cmd
}

func newTaskScriptsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "scripts",
		Short: "List available custom scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			names, err := client.ListScripts()
			if err != nil {
				return err
			}

			rows := make([][]string, len(names))
			for i, name := range names {
				rows[i] = []string{name}
			}

			out.Print([]string{"NAME"}, rows, names)
			return nil
		},
	}
}
