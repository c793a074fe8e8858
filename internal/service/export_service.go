package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
	"github.com/noah-isme/school-timetable-api/pkg/export"
	"github.com/noah-isme/school-timetable-api/pkg/storage"
)

// ExportFormat identifies a supported export file format.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var timetableExportHeaders = []string{"Day", "Start", "End", "Subject", "Teacher", "Class Group", "Room"}

type timetableProvider interface {
	ForTerm(ctx context.Context, termID string) (*models.WeeklyTimetable, error)
	ForTeacher(ctx context.Context, termID, teacherID string) (*models.WeeklyTimetable, error)
	ForClassGroup(ctx context.Context, termID, classGroupID string) (*models.WeeklyTimetable, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// ExportRequest describes one timetable export. TeacherID and ClassGroupID
// narrow the projection; at most one of them may be set.
type ExportRequest struct {
	TermID       string       `json:"term_id" validate:"required"`
	TeacherID    string       `json:"teacher_id"`
	ClassGroupID string       `json:"class_group_id"`
	Format       ExportFormat `json:"format" validate:"required"`
}

// ExportResult carries the signed download handle for a finished export.
type ExportResult struct {
	ExportID      string       `json:"export_id"`
	FileName      string       `json:"file_name"`
	Format        ExportFormat `json:"format"`
	DownloadToken string       `json:"download_token"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

// ExportService renders timetable projections to downloadable files. Files
// land in local storage and are handed out through short-lived signed tokens
// so download URLs can be shared without authentication headers.
type ExportService struct {
	timetables timetableProvider
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	files      exportStorage
	signer     *storage.SignedURLSigner
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(timetables timetableProvider, files exportStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		timetables: timetables,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		files:      files,
		signer:     signer,
		validator:  validate,
		logger:     logger,
	}
}

// Export renders the requested timetable and stores the resulting file.
func (s *ExportService) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if req.TeacherID != "" && req.ClassGroupID != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id and class_group_id are mutually exclusive")
	}

	timetable, title, err := s.loadTimetable(ctx, req)
	if err != nil {
		return nil, err
	}

	dataset := timetableDataset(timetable)

	var payload []byte
	switch req.Format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", req.Format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	fileName := path.Join(req.TermID, fmt.Sprintf("%s.%s", exportID, req.Format))
	relPath, err := s.files.Save(fileName, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export download")
	}

	s.logger.Info("timetable export created",
		zap.String("export_id", exportID),
		zap.String("term_id", req.TermID),
		zap.String("scope", timetable.Scope),
		zap.String("format", string(req.Format)),
	)

	return &ExportResult{
		ExportID:      exportID,
		FileName:      fileName,
		Format:        req.Format,
		DownloadToken: token,
		ExpiresAt:     expiresAt,
	}, nil
}

// OpenDownload validates a signed token and opens the referenced file.
func (s *ExportService) OpenDownload(token string) (*os.File, string, error) {
	exportID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}

	file, err := s.files.Open(relPath)
	if err != nil {
		s.logger.Warn("export file missing for valid token", zap.String("export_id", exportID), zap.Error(err))
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}

	return file, path.Base(relPath), nil
}

func (s *ExportService) loadTimetable(ctx context.Context, req ExportRequest) (*models.WeeklyTimetable, string, error) {
	switch {
	case req.TeacherID != "":
		timetable, err := s.timetables.ForTeacher(ctx, req.TermID, req.TeacherID)
		return timetable, "Teacher Timetable", err
	case req.ClassGroupID != "":
		timetable, err := s.timetables.ForClassGroup(ctx, req.TermID, req.ClassGroupID)
		return timetable, "Class Group Timetable", err
	default:
		timetable, err := s.timetables.ForTerm(ctx, req.TermID)
		return timetable, "Term Timetable", err
	}
}

func timetableDataset(timetable *models.WeeklyTimetable) export.Dataset {
	dataset := export.Dataset{Headers: timetableExportHeaders}
	for _, day := range timetable.Days {
		for _, lesson := range day.Lessons {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Day":         string(day.Day),
				"Start":       lesson.StartTime,
				"End":         lesson.EndTime,
				"Subject":     lesson.Subject,
				"Teacher":     lesson.Teacher,
				"Class Group": lesson.ClassGroup,
				"Room":        lesson.Room,
			})
		}
	}
	return dataset
}
