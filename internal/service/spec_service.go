package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tempspec/internal/authz"
	"tempspec/internal/docgen"
	"tempspec/internal/lock"
	"tempspec/internal/model"
	"tempspec/internal/repository"
	"tempspec/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateSpecRequest struct {
	Theme          string   `json:"theme" form:"theme"`
	Applicant      string   `json:"applicant" form:"applicant"`
	ApplicantPhone string   `json:"applicant_phone" form:"applicant_phone"`
	Stations       []string `json:"station" form:"station"`
	StationOther   string   `json:"station_other" form:"station_other"`
	TCCSLevel      string   `json:"tccs_level" form:"tccs_level"`
	TCCS4M         string   `json:"tccs_4m" form:"tccs_4m"`
	StartDate      string   `json:"start_date" form:"start_date"` // YYYY-MM-DD, today when unparsable
	Package        string   `json:"package" form:"package"`
	LotNumber      string   `json:"lot_number" form:"lot_number"`
	EquipmentType  string   `json:"equipment_type" form:"equipment_type"`
	ChangeBefore   string   `json:"change_before" form:"change_before"`
	ChangeAfter    string   `json:"change_after" form:"change_after"`
	DataNeeds      string   `json:"data_needs" form:"data_needs"`
}

// PreviewRequest carries unsaved form data; station and tccs_info are
// already composed by the client.
type PreviewRequest struct {
	SerialNumber   string `json:"serial_number"`
	Theme          string `json:"theme"`
	Applicant      string `json:"applicant"`
	ApplicantPhone string `json:"applicant_phone"`
	Station        string `json:"station"`
	TCCSInfo       string `json:"tccs_info"`
	StartDate      string `json:"start_date"`
	Package        string `json:"package"`
	LotNumber      string `json:"lot_number"`
	EquipmentType  string `json:"equipment_type"`
	ChangeBefore   string `json:"change_before"`
	ChangeAfter    string `json:"change_after"`
	DataNeeds      string `json:"data_needs"`
}

type ExtendRequest struct {
	NewEndDate string `json:"new_end_date" form:"new_end_date"`
}

type TerminateRequest struct {
	Reason string `json:"reason" form:"reason"`
}

// UploadedFile is a file received from the client.
type UploadedFile struct {
	Name string
	Data []byte
}

type SpecListFilter struct {
	Query  string
	Status string
	Page   int
	Limit  int
}

type UploadResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
}

type SpecResponse struct {
	ID                string           `json:"id"`
	SpecCode          string           `json:"spec_code"`
	Applicant         string           `json:"applicant"`
	Title             string           `json:"title"`
	Content           string           `json:"content"`
	StartDate         string           `json:"start_date"`
	EndDate           string           `json:"end_date"`
	Status            string           `json:"status"`
	ExtensionCount    int              `json:"extension_count"`
	TerminationReason *string          `json:"termination_reason"`
	CreatedAt         string           `json:"created_at"`
	Uploads           []UploadResponse `json:"uploads,omitempty"`
}

// Artifact names a downloadable file of a spec.
type Artifact string

const (
	ArtifactPDF    Artifact = "pdf"
	ArtifactWord   Artifact = "word"
	ArtifactSigned Artifact = "signed"
)

// Download is an open artifact; the caller closes Body.
type Download struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

// SpecEvent is published after every committed lifecycle change.
type SpecEvent struct {
	Type     string `json:"type"`
	SpecID   string `json:"spec_id"`
	SpecCode string `json:"spec_code"`
	Status   string `json:"status"`
}

// --- Interfaces ---

// DocumentGenerator renders form values into Word and PDF bytes.
type DocumentGenerator interface {
	Generate(ctx context.Context, values map[string]any) (*docgen.Artifacts, error)
}

// Notifier receives lifecycle events; the websocket hub implements it.
type Notifier interface {
	Publish(event any)
}

type SpecService interface {
	NextCode(ctx context.Context, actor authz.Actor) (string, error)
	Create(ctx context.Context, actor authz.Actor, req CreateSpecRequest) (*SpecResponse, error)
	Preview(ctx context.Context, actor authz.Actor, req PreviewRequest) ([]byte, error)
	List(ctx context.Context, actor authz.Actor, filter SpecListFilter) ([]SpecResponse, int64, error)
	Get(ctx context.Context, actor authz.Actor, id string) (*SpecResponse, error)
	Activate(ctx context.Context, actor authz.Actor, id string, file UploadedFile) (*SpecResponse, error)
	Extend(ctx context.Context, actor authz.Actor, id string, req ExtendRequest, file *UploadedFile) (*SpecResponse, error)
	Terminate(ctx context.Context, actor authz.Actor, id string, req TerminateRequest) (*SpecResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
	ExpireDue(ctx context.Context, actor authz.Actor) (int, error)
	Download(ctx context.Context, actor authz.Actor, id string, artifact Artifact) (*Download, error)
}

// SpecDeps bundles the collaborators of the spec service.
type SpecDeps struct {
	TxManager repository.TransactionManager
	Specs     repository.SpecRepository
	Uploads   repository.UploadRepository
	History   repository.HistoryRepository
	Generator DocumentGenerator
	Generated storage.Store // <code>.docx / <code>.pdf
	Files     storage.Store // signed and extension uploads
	Images    storage.Store // inline narrative images
	Locker    lock.Locker
	Notifier  Notifier
	Logger    *zap.Logger
	Now       func() time.Time
}

type specService struct {
	SpecDeps
	log *zap.Logger
}

const (
	dateLayout        = "2006-01-02"
	stampLayout       = "20060102150405"
	defaultPageSize   = 15
	validityDays      = 30
	codeAttempts      = 3
	stationOtherLabel = "其他"
	imageURLPrefix    = "/static/uploads/images/"
)

func NewSpecService(deps SpecDeps) SpecService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &specService{SpecDeps: deps, log: logger.With(zap.String("service", "spec"))}
}

// --- Helpers ---

func authorize(actor authz.Actor, action authz.Action) error {
	if d := authz.Check(actor, action); !d.Allowed {
		return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
	}
	return nil
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, validationError("invalid spec id %q", id)
	}
	return parsed, nil
}

func actorID(actor authz.Actor) *uuid.UUID {
	if actor.IsSystem() || actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func (s *specService) today() time.Time {
	return model.DateOf(s.Now())
}

func (s *specService) publish(kind string, spec *model.TempSpec) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Publish(SpecEvent{
		Type:     kind,
		SpecID:   spec.ID.String(),
		SpecCode: spec.SpecCode,
		Status:   spec.Status,
	})
}

func (s *specService) appendHistory(ctx context.Context, specID uuid.UUID, actor authz.Actor, action, details string) error {
	entry := &model.SpecHistory{
		SpecID:  specID,
		UserID:  actorID(actor),
		Action:  action,
		Details: details,
	}
	if err := s.History.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Lock keys shared by every instance through the Locker.
func codeLockKey(prefix string) string { return "spec-code:" + prefix }
func specLockKey(id uuid.UUID) string { return "spec:" + id.String() }

// lockSpec serialises generation, transitions and deletion of one spec.
func (s *specService) lockSpec(ctx context.Context, id uuid.UUID) (func(), error) {
	unlock, err := s.Locker.Lock(ctx, specLockKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock spec: %w", err)
	}
	return unlock, nil
}

func toUploadResponse(u model.Upload) UploadResponse {
	return UploadResponse{
		ID:         u.ID.String(),
		Kind:       u.Kind,
		Filename:   u.Filename,
		UploadedAt: u.UploadedAt.Format(time.RFC3339),
	}
}

func toSpecResponse(spec *model.TempSpec) *SpecResponse {
	res := &SpecResponse{
		ID:                spec.ID.String(),
		SpecCode:          spec.SpecCode,
		Applicant:         spec.Applicant,
		Title:             spec.Title,
		Content:           spec.Content,
		StartDate:         spec.StartDate.Format(dateLayout),
		EndDate:           spec.EndDate.Format(dateLayout),
		Status:            spec.Status,
		ExtensionCount:    spec.ExtensionCount,
		TerminationReason: spec.TerminationReason,
		CreatedAt:         spec.CreatedAt.Format(time.RFC3339),
	}
	for _, u := range spec.Uploads {
		res.Uploads = append(res.Uploads, toUploadResponse(u))
	}
	return res
}

// composeStations joins the selected stations, replacing the "other" entry
// with the free-text value when one is given.
func composeStations(stations []string, other string) string {
	out := make([]string, 0, len(stations))
	replaced := false
	for _, st := range stations {
		st = strings.TrimSpace(st)
		if st == "" {
			continue
		}
		if st == stationOtherLabel && !replaced && strings.TrimSpace(other) != "" {
			st = strings.TrimSpace(other)
			replaced = true
		}
		out = append(out, st)
	}
	return strings.Join(out, ", ")
}

func composeTCCS(level, fourM string) string {
	return fmt.Sprintf("%s (%s)", level, fourM)
}

func composeContent(before, after, needs string) string {
	var sb strings.Builder
	sb.WriteString("變更前：\n")
	sb.WriteString(before)
	sb.WriteString("\n\n變更後：\n")
	sb.WriteString(after)
	sb.WriteString("\n\n資料收集需求：\n")
	sb.WriteString(needs)
	return sb.String()
}

// parseStartDate falls back to today for empty or malformed input.
func (s *specService) parseStartDate(raw string) time.Time {
	if t, err := time.Parse(dateLayout, strings.TrimSpace(raw)); err == nil {
		return model.DateOf(t)
	}
	return s.today()
}

// --- Implementation ---

func (s *specService) NextCode(ctx context.Context, actor authz.Actor) (string, error) {
	if err := authorize(actor, authz.ActionView); err != nil {
		return "", err
	}
	prefix := CodePrefix(s.Now())
	latest, err := s.Specs.LatestCode(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to read latest spec code: %w", err)
	}
	return NextCode(prefix, latest)
}

func (s *specService) Create(ctx context.Context, actor authz.Actor, req CreateSpecRequest) (*SpecResponse, error) {
	if err := authorize(actor, authz.ActionCreate); err != nil {
		return nil, err
	}
	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		return nil, validationError("theme is required")
	}

	start := s.parseStartDate(req.StartDate)
	end := start.AddDate(0, 0, validityDays)

	values := map[string]any{
		"theme":           theme,
		"applicant":       req.Applicant,
		"applicant_phone": req.ApplicantPhone,
		"station":         composeStations(req.Stations, req.StationOther),
		"tccs_info":       composeTCCS(req.TCCSLevel, req.TCCS4M),
		"start_date":      start.Format(dateLayout),
		"end_date":        end.Format(dateLayout),
		"package":         req.Package,
		"lot_number":      req.LotNumber,
		"equipment_type":  req.EquipmentType,
		"change_before":   req.ChangeBefore,
		"change_after":    req.ChangeAfter,
		"data_needs":      req.DataNeeds,
	}

	prefix := CodePrefix(s.Now())
	unlock, err := s.Locker.Lock(ctx, codeLockKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to lock spec code allocation: %w", err)
	}
	defer unlock()

	var (
		spec      *model.TempSpec
		artifacts *docgen.Artifacts
	)
	for attempt := 1; ; attempt++ {
		latest, err := s.Specs.LatestCode(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to read latest spec code: %w", err)
		}
		code, err := NextCode(prefix, latest)
		if err != nil {
			return nil, err
		}
		values["serial_number"] = code

		artifacts, err = s.Generator.Generate(ctx, values)
		if err != nil {
			s.log.Error("document generation failed", zap.String("spec_code", code), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
		}

		spec = &model.TempSpec{
			SpecCode:  code,
			Applicant: req.Applicant,
			Title:     theme,
			Content:   composeContent(req.ChangeBefore, req.ChangeAfter, req.DataNeeds),
			StartDate: start,
			EndDate:   end,
			Status:    model.SpecPendingApproval,
			CreatedAt: s.Now(),
		}
		err = s.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.Specs.Create(txCtx, spec); err != nil {
				return err
			}
			return s.appendHistory(txCtx, spec.ID, actor, model.ActionCreateSpec, "created temporary spec "+code)
		})
		if err == nil {
			break
		}
		if !isDuplicateKey(err) {
			return nil, fmt.Errorf("failed to create spec: %w", err)
		}
		if attempt == codeAttempts {
			return nil, fmt.Errorf("%w: could not allocate a spec code after %d attempts", ErrConflict, codeAttempts)
		}
		s.log.Warn("spec code taken, retrying", zap.String("spec_code", code), zap.Int("attempt", attempt))
	}

	if err := s.storeGenerated(ctx, spec.SpecCode, artifacts); err != nil {
		s.log.Error("storing generated documents failed, rolling back spec",
			zap.String("spec_code", spec.SpecCode), zap.Error(err))
		if rbErr := s.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			return s.Specs.Delete(txCtx, spec.ID)
		}); rbErr != nil {
			s.log.Error("spec rollback failed", zap.String("spec_code", spec.SpecCode), zap.Error(rbErr))
		}
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	s.log.Info("spec created", zap.String("spec_code", spec.SpecCode), zap.Stringer("spec_id", spec.ID))
	s.publish("created", spec)
	return toSpecResponse(spec), nil
}

func (s *specService) storeGenerated(ctx context.Context, code string, a *docgen.Artifacts) error {
	docxKey, pdfKey := code+".docx", code+".pdf"
	if err := s.Generated.Put(ctx, docxKey, a.Docx, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"); err != nil {
		return err
	}
	if err := s.Generated.Put(ctx, pdfKey, a.PDF, "application/pdf"); err != nil {
		if delErr := s.Generated.Delete(ctx, docxKey); delErr != nil {
			s.log.Warn("orphaned document left behind", zap.String("key", docxKey), zap.Error(delErr))
		}
		return err
	}
	return nil
}

func (s *specService) Preview(ctx context.Context, actor authz.Actor, req PreviewRequest) ([]byte, error) {
	if err := authorize(actor, authz.ActionPreview); err != nil {
		return nil, err
	}

	today := s.today()
	orDefault := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}

	values := map[string]any{
		"serial_number":   orDefault(req.SerialNumber, "PREVIEW-SN"),
		"theme":           orDefault(req.Theme, "PREVIEW-THEME"),
		"applicant":       req.Applicant,
		"applicant_phone": req.ApplicantPhone,
		"station":         req.Station,
		"tccs_info":       req.TCCSInfo,
		"start_date":      orDefault(req.StartDate, today.Format(dateLayout)),
		"end_date":        today.AddDate(0, 0, validityDays).Format(dateLayout),
		"package":         req.Package,
		"lot_number":      req.LotNumber,
		"equipment_type":  req.EquipmentType,
		"change_before":   req.ChangeBefore,
		"change_after":    req.ChangeAfter,
		"data_needs":      req.DataNeeds,
	}

	artifacts, err := s.Generator.Generate(ctx, values)
	if err != nil {
		s.log.Error("preview generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return artifacts.PDF, nil
}

func (s *specService) List(ctx context.Context, actor authz.Actor, filter SpecListFilter) ([]SpecResponse, int64, error) {
	if err := authorize(actor, authz.ActionView); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !model.ValidSpecStatus(filter.Status) {
		return nil, 0, validationError("unknown status %q", filter.Status)
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}

	specs, total, err := s.Specs.List(ctx, repository.SpecFilter{
		Query:  strings.TrimSpace(filter.Query),
		Status: filter.Status,
	}, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list specs: %w", err)
	}

	res := make([]SpecResponse, 0, len(specs))
	for i := range specs {
		res = append(res, *toSpecResponse(&specs[i]))
	}
	return res, total, nil
}

func (s *specService) Get(ctx context.Context, actor authz.Actor, id string) (*SpecResponse, error) {
	if err := authorize(actor, authz.ActionView); err != nil {
		return nil, err
	}
	specID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	spec, err := s.Specs.FindByIDWithUploads(ctx, specID)
	if err != nil {
		return nil, notFound(err, "spec")
	}
	return toSpecResponse(spec), nil
}
