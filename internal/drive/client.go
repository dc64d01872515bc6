package drive

import (
	"context"
	"fmt"
	"time"

	drive "google.golang.org/api/drive/v2"

	"github.com/robertlancer/supershare/internal/google"
	"github.com/robertlancer/supershare/internal/instrumentation"
)

// listFields limits folder listings to the fields the viewer reads.
const listFields = "items(owners,id,iconLink,mimeType,permissions,title)"

// Client wraps the Google Drive API service for a single impersonated account.
type Client struct {
	service *drive.Service
	account string
	metrics *instrumentation.Metrics
}

// NewClientForAccount obtains the cached authenticated Drive client for the
// given account from the factory.
func NewClientForAccount(ctx context.Context, factory *google.Factory, account string, metrics *instrumentation.Metrics) (*Client, error) {
	client, err := factory.ClientFor(ctx, account, google.KindDrive)
	if err != nil {
		return nil, fmt.Errorf("failed to get Drive client for account %s: %w", account, err)
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Client{
		service: client.Drive(),
		account: account,
		metrics: metrics,
	}, nil
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// ListFolderFiles lists all non-trashed files whose parent is the given
// folder, limited to the fields the viewer needs.
func (c *Client) ListFolderFiles(ctx context.Context, folderID string) ([]*FileInfo, error) {
	if folderID == "" {
		return nil, fmt.Errorf("folderID is required")
	}

	start := time.Now()
	fileList, err := c.service.Files.List().
		Context(ctx).
		Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
		Fields(listFields).
		Do()
	c.recordOperation(ctx, "files.list", err, start)
	if err != nil {
		return nil, fmt.Errorf("failed to list files in folder %s: %w", folderID, err)
	}

	files := make([]*FileInfo, len(fileList.Items))
	for i, f := range fileList.Items {
		files[i] = convertToFileInfo(f)
	}

	return files, nil
}

// ListPermissions lists all permissions for a file.
func (c *Client) ListPermissions(ctx context.Context, fileID string) ([]*Permission, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	start := time.Now()
	permList, err := c.service.Permissions.List(fileID).
		Context(ctx).
		Do()
	c.recordOperation(ctx, "permissions.list", err, start)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions for file %s: %w", fileID, err)
	}

	permissions := make([]*Permission, len(permList.Items))
	for i, p := range permList.Items {
		permissions[i] = convertToPermission(p)
	}

	return permissions, nil
}

// InsertPermission inserts a permission on a file. There is no idempotency
// guard; the API tolerates duplicate grants.
func (c *Client) InsertPermission(ctx context.Context, fileID string, permission *Permission) (*Permission, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}
	if permission == nil {
		return nil, fmt.Errorf("permission is required")
	}
	if permission.Type == "" {
		return nil, fmt.Errorf("permission type is required")
	}
	if permission.Role == "" {
		return nil, fmt.Errorf("permission role is required")
	}

	start := time.Now()
	inserted, err := c.service.Permissions.Insert(fileID, &drive.Permission{
		Type:     permission.Type,
		Role:     permission.Role,
		WithLink: permission.WithLink,
	}).Context(ctx).Do()
	c.recordOperation(ctx, "permissions.insert", err, start)
	if err != nil {
		return nil, fmt.Errorf("failed to insert permission on file %s: %w", fileID, err)
	}

	return convertToPermission(inserted), nil
}

func (c *Client) recordOperation(ctx context.Context, operation string, err error, start time.Time) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordDriveOperation(ctx, operation, status, time.Since(start))
}

// convertToFileInfo converts a Drive API File to our FileInfo type
func convertToFileInfo(f *drive.File) *FileInfo {
	fileInfo := &FileInfo{
		ID:       f.Id,
		Title:    f.Title,
		MimeType: f.MimeType,
		IconLink: f.IconLink,
	}

	for _, owner := range f.Owners {
		fileInfo.Owners = append(fileInfo.Owners, User{
			DisplayName:  owner.DisplayName,
			EmailAddress: owner.EmailAddress,
		})
	}

	for _, perm := range f.Permissions {
		fileInfo.Permissions = append(fileInfo.Permissions, *convertToPermission(perm))
	}

	return fileInfo
}

// convertToPermission converts a Drive API Permission to our Permission type
func convertToPermission(p *drive.Permission) *Permission {
	return &Permission{
		ID:           p.Id,
		Type:         p.Type,
		Role:         p.Role,
		WithLink:     p.WithLink,
		EmailAddress: p.EmailAddress,
		Domain:       p.Domain,
		Name:         p.Name,
	}
}
