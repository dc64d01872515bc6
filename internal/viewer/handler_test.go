package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertlancer/supershare/internal/drive"
)

type fakeFiles struct {
	files     []*drive.FileInfo
	listErr   error
	inserted  []*drive.Permission
	insertErr error
}

func (f *fakeFiles) ListFolderFiles(ctx context.Context, folderID string) ([]*drive.FileInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

func (f *fakeFiles) InsertPermission(ctx context.Context, fileID string, permission *drive.Permission) (*drive.Permission, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, permission)
	return permission, nil
}

type fakeClientSource struct {
	files *fakeFiles
	err   error
}

func (s *fakeClientSource) DriveForAccount(ctx context.Context, account string) (Files, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.files, nil
}

func newTestHandler(files *fakeFiles) *Handler {
	return NewHandler(
		Config{FolderID: "folder123", Account: "admin@example.com"},
		&fakeClientSource{files: files},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
	)
}

func publicFile(title string) *drive.FileInfo {
	return &drive.FileInfo{
		ID:       "file-" + strings.ReplaceAll(title, " ", "_"),
		Title:    title,
		MimeType: MimeDocument,
		IconLink: "https://ssl.gstatic.com/docs/doclist/images/icon_10_document_list.png",
		Owners:   []drive.User{{EmailAddress: "owner@corp.example"}},
		Permissions: []drive.Permission{
			{Type: "anyone", Role: "reader", WithLink: true},
		},
	}
}

func serve(h *Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestEmptyPathSegmentIsNotFound(t *testing.T) {
	h := newTestHandler(&fakeFiles{})

	rec := serve(h, http.MethodGet, "/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, notFoundMessage, rec.Body.String())
}

func TestUnmatchedTitleIsNotFound(t *testing.T) {
	h := newTestHandler(&fakeFiles{files: []*drive.FileInfo{publicFile("quarterly report")}})

	rec := serve(h, http.MethodGet, "/no-such-document")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, notFoundMessage, rec.Body.String())
}

func TestListingFailureCollapsesToNotFound(t *testing.T) {
	h := newTestHandler(&fakeFiles{listErr: errors.New("boom")})

	rec := serve(h, http.MethodGet, "/quarterly-report")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, notFoundMessage, rec.Body.String())
}

func TestClientFailureCollapsesToNotFound(t *testing.T) {
	h := NewHandler(
		Config{FolderID: "folder123", Account: "admin@example.com"},
		&fakeClientSource{err: errors.New("no usable key")},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
	)

	rec := serve(h, http.MethodGet, "/quarterly-report")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMatchedFileRendersViewerPage(t *testing.T) {
	file := publicFile("Quarterly Report")
	h := newTestHandler(&fakeFiles{files: []*drive.FileInfo{file}})

	rec := serve(h, http.MethodGet, "/quarterly-report")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Quarterly Report</title>")
	assert.Contains(t, body, file.IconLink)
	assert.Contains(t, body, "https://docs.google.com/a/corp.example/document/d/"+file.ID+"/preview")
}

func TestHyphenNormalizationAndCaseInsensitiveMatch(t *testing.T) {
	h := newTestHandler(&fakeFiles{files: []*drive.FileInfo{publicFile("My Document Title")}})

	rec := serve(h, http.MethodGet, "/my-document-title")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLastMatchWinsOnDuplicateTitles(t *testing.T) {
	first := publicFile("shared name")
	first.ID = "file-first"
	last := publicFile("Shared Name")
	last.ID = "file-last"

	h := newTestHandler(&fakeFiles{files: []*drive.FileInfo{first, last}})

	rec := serve(h, http.MethodGet, "/shared-name")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "file-last")
	assert.NotContains(t, rec.Body.String(), "file-first")
}

func TestAlreadyPublicFileIssuesNoInsert(t *testing.T) {
	files := &fakeFiles{files: []*drive.FileInfo{publicFile("public doc")}}
	h := newTestHandler(files)

	rec := serve(h, http.MethodGet, "/public-doc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, files.inserted)
}

func TestAnyonePermissionCheckIsCaseInsensitive(t *testing.T) {
	file := publicFile("mixed case grant")
	file.Permissions = []drive.Permission{{Type: "Anyone", Role: "reader"}}
	files := &fakeFiles{files: []*drive.FileInfo{file}}
	h := newTestHandler(files)

	rec := serve(h, http.MethodGet, "/mixed-case-grant")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, files.inserted)
}

func TestPrivateFileGetsExactlyOneAnyoneGrant(t *testing.T) {
	file := publicFile("private doc")
	file.Permissions = []drive.Permission{{Type: "user", Role: "writer", EmailAddress: "owner@corp.example"}}
	files := &fakeFiles{files: []*drive.FileInfo{file}}
	h := newTestHandler(files)

	rec := serve(h, http.MethodGet, "/private-doc")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, files.inserted, 1)
	granted := files.inserted[0]
	assert.Equal(t, "anyone", granted.Type)
	assert.Equal(t, "reader", granted.Role)
	assert.True(t, granted.WithLink)
}

func TestInsertFailureIsInternalError(t *testing.T) {
	file := publicFile("private doc")
	file.Permissions = nil
	h := newTestHandler(&fakeFiles{
		files:     []*drive.FileInfo{file},
		insertErr: errors.New("insufficient permissions"),
	})

	rec := serve(h, http.MethodGet, "/private-doc")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, internalErrorMessage, rec.Body.String())
}

func TestOwnerlessFileIsInternalError(t *testing.T) {
	file := publicFile("orphan doc")
	file.Owners = nil
	h := newTestHandler(&fakeFiles{files: []*drive.FileInfo{file}})

	rec := serve(h, http.MethodGet, "/orphan-doc")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, internalErrorMessage, rec.Body.String())
}

func TestPostHandledIdenticallyToGet(t *testing.T) {
	file := publicFile("Quarterly Report")
	h := newTestHandler(&fakeFiles{files: []*drive.FileInfo{file}})

	getRec := serve(h, http.MethodGet, "/quarterly-report")
	postRec := serve(h, http.MethodPost, "/quarterly-report")

	assert.Equal(t, getRec.Code, postRec.Code)
	assert.Equal(t, getRec.Body.String(), postRec.Body.String())
}

func TestRenderPageLayout(t *testing.T) {
	file := publicFile("Layout Test")
	url := fmt.Sprintf("https://docs.google.com/a/corp.example/document/d/%s/preview", file.ID)

	page := renderPage(file, url)

	assert.True(t, strings.HasPrefix(page, "<html>"))
	assert.True(t, strings.HasSuffix(page, "</body></html>"))
	assert.Contains(t, page, "<iframe src='"+url+"' frameborder=0 style='width:100%;height:100%;' />")
	assert.Contains(t, page, "html, body { overflow:hidden; height:100%; padding:0px; margin:0px; }")
}
