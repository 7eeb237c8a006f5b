package syncprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/avast/retry-go/v4"

	"knowledge-agent-backend/model"
	"knowledge-agent-backend/service/ingestion"
	"knowledge-agent-backend/utils"
)

const (
	gdriveAPIBase = "https://www.googleapis.com/drive/v3"

	gdriveFolderMimeType = "application/vnd.google-apps.folder"

	gdriveFileFields = "id,name,mimeType,modifiedTime,webViewLink"
)

type gdriveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime"`
	WebViewLink  string `json:"webViewLink"`
}

type gdriveFileList struct {
	Files []gdriveFile `json:"files"`
}

// GoogleDrive Google Drive REST v3 客户端
type GoogleDrive struct {
	client *http.Client
}

var _ ingestion.SyncProvider = &GoogleDrive{}

func NewGoogleDrive() *GoogleDrive {
	return &GoogleDrive{
		client: utils.DefaultHTTPClient(),
	}
}

func (g *GoogleDrive) GetFilesByID(ctx context.Context, credentials json.RawMessage, fileIDs []string) ([]model.SyncFile, error) {
	token, err := accessToken(credentials)
	if err != nil {
		return nil, err
	}

	files := make([]model.SyncFile, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		requestURL := fmt.Sprintf("%s/files/%s?fields=%s",
			gdriveAPIBase, url.PathEscape(fileID), url.QueryEscape(gdriveFileFields))

		var f gdriveFile
		if err := g.getJSON(ctx, token, requestURL, &f); err != nil {
			return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
		}
		files = append(files, gdriveToSyncFile(&f))
	}

	return files, nil
}

func (g *GoogleDrive) ListChildren(ctx context.Context, credentials json.RawMessage, folderID string) ([]model.SyncFile, error) {
	token, err := accessToken(credentials)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("'%s' in parents and trashed=false", folderID)
	requestURL := fmt.Sprintf("%s/files?q=%s&fields=%s&pageSize=%d",
		gdriveAPIBase, url.QueryEscape(query),
		url.QueryEscape("files("+gdriveFileFields+")"), listPageSize)

	var list gdriveFileList
	if err := g.getJSON(ctx, token, requestURL, &list); err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}

	children := make([]model.SyncFile, 0, len(list.Files))
	for i := range list.Files {
		child := gdriveToSyncFile(&list.Files[i])
		child.ParentID = folderID
		children = append(children, child)
	}

	return children, nil
}

func (g *GoogleDrive) Download(ctx context.Context, credentials json.RawMessage, file *model.SyncFile) ([]byte, error) {
	token, err := accessToken(credentials)
	if err != nil {
		return nil, err
	}

	requestURL := fmt.Sprintf("%s/files/%s?alt=media", gdriveAPIBase, url.PathEscape(file.ID))
	data, err := g.getBytes(ctx, token, requestURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", file.ID, err)
	}

	return data, nil
}

func (g *GoogleDrive) getJSON(ctx context.Context, token, requestURL string, out any) error {
	data, err := g.getBytes(ctx, token, requestURL)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (g *GoogleDrive) getBytes(ctx context.Context, token, requestURL string) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := g.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
				return io.ReadAll(resp.Body)
			case resp.StatusCode == http.StatusNotFound:
				return nil, retry.Unrecoverable(ingestion.ErrFileNotFound)
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				body, _ := io.ReadAll(resp.Body)
				return nil, retry.Unrecoverable(fmt.Errorf("google drive api error %d: %s", resp.StatusCode, body))
			default:
				return nil, fmt.Errorf("google drive api error %d", resp.StatusCode)
			}
		},
		retry.Context(ctx),
		retry.Attempts(requestAttempts),
		retry.DelayType(retry.BackOffDelay),
	)
}

func gdriveToSyncFile(f *gdriveFile) model.SyncFile {
	isFolder := f.MimeType == gdriveFolderMimeType

	extension := ""
	if !isFolder {
		extension = strings.ToLower(filepath.Ext(f.Name))
	}

	return model.SyncFile{
		ID:             f.ID,
		Name:           f.Name,
		Extension:      extension,
		IsFolder:       isFolder,
		LastModifiedAt: parseRemoteTime(f.ModifiedTime),
		WebViewLink:    f.WebViewLink,
	}
}
