package viewer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/robertlancer/supershare/internal/drive"
	"github.com/robertlancer/supershare/internal/instrumentation"
	"github.com/robertlancer/supershare/internal/logging"
)

// Fixed response bodies. The not-found message covers missing path segments,
// unmatched titles, and failed folder listings alike.
const (
	notFoundMessage      = "Sorry could not find the document you were looking for."
	internalErrorMessage = "An internal error occurred please try again soon."
)

// Files is the slice of the Drive client the viewer uses.
type Files interface {
	ListFolderFiles(ctx context.Context, folderID string) ([]*drive.FileInfo, error)
	InsertPermission(ctx context.Context, fileID string, permission *drive.Permission) (*drive.Permission, error)
}

// ClientSource provides an authenticated Files client impersonating the
// given account.
type ClientSource interface {
	DriveForAccount(ctx context.Context, account string) (Files, error)
}

// Config holds the process-wide lookup scope for the viewer.
type Config struct {
	// FolderID is the single Drive folder searched for documents
	FolderID string

	// Account is the email address impersonated for all Drive API calls
	Account string
}

// Handler serves document viewer pages. It expects to be mounted behind
// http.StripPrefix so the request path is /{title-with-hyphens}.
type Handler struct {
	config  Config
	clients ClientSource
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewHandler creates a viewer handler.
func NewHandler(config Config, clients ClientSource, logger *slog.Logger, metrics *instrumentation.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Handler{
		config:  config,
		clients: clients,
		logger:  logging.WithService(logger, "viewer"),
		metrics: metrics,
	}
}

// ServeHTTP handles GET and POST identically: POST carries no distinct
// semantics and the body is never read.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	segment := strings.TrimPrefix(r.URL.Path, "/")
	if segment == "" {
		h.sendError(w, http.StatusNotFound)
		return
	}

	// Hyphens in the path stand in for spaces in the document title.
	title := strings.ReplaceAll(segment, "-", " ")

	file := h.matchTitle(h.listFiles(ctx), title)
	if file == nil {
		h.sendError(w, http.StatusNotFound)
		return
	}

	if !file.PubliclyViewable() {
		if err := h.ensurePublic(ctx, file); err != nil {
			h.sendError(w, http.StatusInternalServerError)
			return
		}
	}

	url, err := PreviewURL(file)
	if err != nil {
		h.logger.Error("failed to derive preview URL",
			logging.Operation("render"),
			logging.FileID(file.ID),
			logging.Err(err))
		h.sendError(w, http.StatusInternalServerError)
		return
	}

	if _, err := io.WriteString(w, renderPage(file, url)); err != nil {
		h.logger.Error("failed to write viewer page",
			logging.Operation("render"),
			logging.FileID(file.ID),
			logging.Err(err))
	}
}

// listFiles lists the candidate files of the configured folder. Any failure
// is logged and collapses into an absent list, which the caller resolves to
// not-found.
func (h *Handler) listFiles(ctx context.Context) []*drive.FileInfo {
	client, err := h.clients.DriveForAccount(ctx, h.config.Account)
	if err != nil {
		h.logger.Error("failed to get Drive client",
			logging.Operation("list"),
			logging.UserHash(h.config.Account),
			logging.Err(err))
		return nil
	}

	files, err := client.ListFolderFiles(ctx, h.config.FolderID)
	if err != nil {
		h.logger.Error("failed to list folder",
			logging.Operation("list"),
			logging.Folder(h.config.FolderID),
			logging.Err(err))
		return nil
	}

	return files
}

// matchTitle scans all candidates for a case-insensitive title match.
// When several candidates match, the last one in listing order wins.
func (h *Handler) matchTitle(files []*drive.FileInfo, title string) *drive.FileInfo {
	var match *drive.FileInfo
	for _, f := range files {
		if strings.EqualFold(f.Title, title) {
			match = f
		}
	}
	return match
}

// ensurePublic inserts an anyone-with-the-link reader grant on the file.
// Two concurrent requests for the same never-yet-public file can both insert;
// the API tolerates the duplicate grant.
func (h *Handler) ensurePublic(ctx context.Context, file *drive.FileInfo) error {
	client, err := h.clients.DriveForAccount(ctx, h.config.Account)
	if err != nil {
		h.metrics.RecordPermissionUpgrade(ctx, instrumentation.StatusError)
		h.logger.Error("failed to get Drive client",
			logging.Operation("share"),
			logging.UserHash(h.config.Account),
			logging.Err(err))
		return err
	}

	if _, err := client.InsertPermission(ctx, file.ID, drive.AnyoneWithLink()); err != nil {
		h.metrics.RecordPermissionUpgrade(ctx, instrumentation.StatusError)
		h.logger.Error("failed to insert permission",
			logging.Operation("share"),
			logging.FileID(file.ID),
			logging.Err(err))
		return err
	}

	h.metrics.RecordPermissionUpgrade(ctx, instrumentation.StatusSuccess)
	h.logger.Info("permission upgraded to anyone with the link",
		logging.Operation("share"),
		logging.Title(file.Title),
		logging.FileID(file.ID))
	return nil
}

// sendError writes one of the fixed error bodies. A failure while writing is
// only logged; error reporting is best effort.
func (h *Handler) sendError(w http.ResponseWriter, code int) {
	w.WriteHeader(code)

	message := internalErrorMessage
	if code == http.StatusNotFound {
		message = notFoundMessage
	}

	if _, err := io.WriteString(w, message); err != nil {
		h.logger.Error("failed to write error response", logging.Err(err))
	}
}
