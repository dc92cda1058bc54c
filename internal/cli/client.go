package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// FileResponse — файл данных из API.
type FileResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Source      string `json:"source"`
	SizeBytes   int64  `json:"size_bytes"`
	RowCount    int    `json:"row_count,omitempty"`
	ColumnCount int    `json:"column_count,omitempty"`
	HasRemote   bool   `json:"has_remote_copy"`
	Status      string `json:"status"`
	DetectedAt  string `json:"detected_at"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// PreviewResponse — превью таблицы из API.
type PreviewResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Total   int      `json:"total_rows"`
}

// TaskResponse — задача обработки из API.
type TaskResponse struct {
	ID            string         `json:"id"`
	FileID        string         `json:"file_id"`
	Type          string         `json:"type"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Status        string         `json:"status"`
	Result        map[string]any `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	StartedAt     string         `json:"started_at,omitempty"`
	FinishedAt    string         `json:"finished_at,omitempty"`
	CreatedAt     string         `json:"created_at"`
}

// SubmissionResponse — принятый запрос на обработку.
type SubmissionResponse struct {
	TaskID        string `json:"task_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// --- Request types ---

// ProcessRequest — запрос на обработку файла.
type ProcessRequest struct {
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ListFilesOpts — параметры фильтрации файлов.
type ListFilesOpts struct {
	Status string
	Source string
	Limit  int
}

// ListTasksOpts — параметры фильтрации задач.
type ListTasksOpts struct {
	FileID string
	Type   string
	Status string
	Limit  int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Crucible API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Files ---

// ListFiles возвращает файлы данных с фильтрацией.
func (c *Client) ListFiles(opts ListFilesOpts) ([]FileResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Source != "" {
		params.Set("source", opts.Source)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var files []FileResponse
	err := c.list("/api/v1/files", params, &files)
	return files, err
}

// GetFile возвращает файл по ID.
func (c *Client) GetFile(id string) (*FileResponse, error) {
	var file FileResponse
	err := c.get("/api/v1/files/"+id, &file)
	return &file, err
}

// UploadFile загружает файл данных.
func (c *Client) UploadFile(path string) (*FileResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/files", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var file FileResponse
	if err := json.Unmarshal(dr.Data, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// PreviewFile возвращает первые строки таблицы.
func (c *Client) PreviewFile(id string, rows int) (*PreviewResponse, error) {
	path := "/api/v1/files/" + id + "/preview"
	if rows > 0 {
		path += fmt.Sprintf("?rows=%d", rows)
	}
	var preview PreviewResponse
	err := c.get(path, &preview)
	return &preview, err
}

// DeleteFile удаляет файл.
func (c *Client) DeleteFile(id string) error {
	return c.delete("/api/v1/files/" + id)
}

// --- Tasks ---

// SubmitProcessing отправляет файл на обработку.
func (c *Client) SubmitProcessing(fileID string, req ProcessRequest) (*SubmissionResponse, error) {
	var submission SubmissionResponse
	err := c.post("/api/v1/files/"+fileID+"/process", req, &submission)
	return &submission, err
}

// ListTasks возвращает задачи обработки с фильтрацией.
func (c *Client) ListTasks(opts ListTasksOpts) ([]TaskResponse, error) {
	params := url.Values{}
	if opts.FileID != "" {
		params.Set("file_id", opts.FileID)
	}
	if opts.Type != "" {
		params.Set("type", opts.Type)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var tasks []TaskResponse
	err := c.list("/api/v1/tasks", params, &tasks)
	return tasks, err
}

// GetTask возвращает задачу по ID.
func (c *Client) GetTask(id string) (*TaskResponse, error) {
	var task TaskResponse
	err := c.get("/api/v1/tasks/"+id, &task)
	return &task, err
}

// ExportTaskResult скачивает результат задачи в файл.
// format — json или csv.
func (c *Client) ExportTaskResult(id, format, destPath string) error {
	resp, err := c.do(http.MethodGet, "/api/v1/tasks/"+id+"/export?format="+format, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, resp.Body)
	return err
}

// ListScripts возвращает имена доступных пользовательских скриптов.
func (c *Client) ListScripts() ([]string, error) {
	var names []string
	err := c.list("/api/v1/scripts", nil, &names)
	return names, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
