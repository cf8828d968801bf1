package service

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"tempspec/internal/authz"
	"tempspec/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	markdownImage = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)
	htmlImage     = regexp.MustCompile(`(?i)<img[^>]+src\s*=\s*["']([^"']+)["']`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// sanitizeFilename keeps the base name with a conservative character set.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	return base
}

// inlineImageKeys lists the image files referenced from content that live
// in the inline image store.
func inlineImageKeys(content string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, re := range []*regexp.Regexp{markdownImage, htmlImage} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			url := strings.TrimSpace(m[1])
			if !strings.HasPrefix(url, imageURLPrefix) {
				continue
			}
			key := path.Base(url)
			if key == "." || key == "/" || seen[key] {
				continue
			}
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

func (s *specService) Activate(ctx context.Context, actor authz.Actor, id string, file UploadedFile) (*SpecResponse, error) {
	if err := authorize(actor, authz.ActionActivate); err != nil {
		return nil, err
	}
	specID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if file.Name == "" || len(file.Data) == 0 {
		return nil, validationError("a signed file is required")
	}

	unlock, err := s.lockSpec(ctx, specID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	spec, err := s.Specs.FindByID(ctx, specID)
	if err != nil {
		return nil, notFound(err, "spec")
	}
	if spec.Status != model.SpecPendingApproval {
		return nil, fmt.Errorf("%w: cannot activate a spec that is %s", ErrIllegalTransition, spec.Status)
	}

	now := s.Now()
	filename := fmt.Sprintf("%s_signed_%s.pdf", spec.SpecCode, now.Format(stampLayout))
	if err := s.Files.Put(ctx, filename, file.Data, "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to store signed file: %w", err)
	}

	err = s.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		spec.Status = model.SpecActive
		if err := s.Specs.Update(txCtx, spec); err != nil {
			return fmt.Errorf("failed to update spec: %w", err)
		}
		upload := &model.Upload{TempSpecID: spec.ID, Kind: model.UploadSigned, Filename: filename, UploadedAt: now}
		if err := s.Uploads.Create(txCtx, upload); err != nil {
			return fmt.Errorf("failed to record upload: %w", err)
		}
		spec.Uploads = append(spec.Uploads, *upload)
		return s.appendHistory(txCtx, spec.ID, actor, model.ActionActivateSpec,
			fmt.Sprintf("uploaded signed file '%s'", filename))
	})
	if err != nil {
		s.removeFile(ctx, filename)
		return nil, err
	}

	s.log.Info("spec activated", zap.String("spec_code", spec.SpecCode))
	s.publish("activated", spec)
	return toSpecResponse(spec), nil
}

func (s *specService) Extend(ctx context.Context, actor authz.Actor, id string, req ExtendRequest, file *UploadedFile) (*SpecResponse, error) {
	if err := authorize(actor, authz.ActionExtend); err != nil {
		return nil, err
	}
	specID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(req.NewEndDate)
	if raw == "" {
		return nil, validationError("new_end_date is required")
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, validationError("new_end_date %q is not a YYYY-MM-DD date", raw)
	}
	newEnd := model.DateOf(parsed)

	unlock, err := s.lockSpec(ctx, specID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	spec, err := s.Specs.FindByID(ctx, specID)
	if err != nil {
		return nil, notFound(err, "spec")
	}
	if spec.Status != model.SpecActive {
		return nil, fmt.Errorf("%w: cannot extend a spec that is %s", ErrIllegalTransition, spec.Status)
	}
	if newEnd.Before(model.DateOf(spec.EndDate)) {
		return nil, validationError("new end date %s is before the current end date %s",
			newEnd.Format(dateLayout), spec.EndDate.Format(dateLayout))
	}

	now := s.Now()
	var filename string
	if file != nil && file.Name != "" && len(file.Data) > 0 {
		ext := strings.ToLower(filepath.Ext(sanitizeFilename(file.Name)))
		filename = fmt.Sprintf("%s_extension_%s%s", spec.SpecCode, now.Format(stampLayout), ext)
		if err := s.Files.Put(ctx, filename, file.Data, ""); err != nil {
			return nil, fmt.Errorf("failed to store extension file: %w", err)
		}
	}

	err = s.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		spec.EndDate = newEnd
		spec.ExtensionCount++
		if err := s.Specs.Update(txCtx, spec); err != nil {
			return fmt.Errorf("failed to update spec: %w", err)
		}
		details := "extended end date to " + newEnd.Format(dateLayout)
		if filename != "" {
			upload := &model.Upload{TempSpecID: spec.ID, Kind: model.UploadExtension, Filename: filename, UploadedAt: now}
			if err := s.Uploads.Create(txCtx, upload); err != nil {
				return fmt.Errorf("failed to record upload: %w", err)
			}
			spec.Uploads = append(spec.Uploads, *upload)
			details += fmt.Sprintf(", uploaded file '%s'", filename)
		}
		return s.appendHistory(txCtx, spec.ID, actor, model.ActionExtendSpec, details)
	})
	if err != nil {
		if filename != "" {
			s.removeFile(ctx, filename)
		}
		return nil, err
	}

	s.log.Info("spec extended", zap.String("spec_code", spec.SpecCode), zap.Int("extension_count", spec.ExtensionCount))
	s.publish("extended", spec)
	return toSpecResponse(spec), nil
}

func (s *specService) Terminate(ctx context.Context, actor authz.Actor, id string, req TerminateRequest) (*SpecResponse, error) {
	if err := authorize(actor, authz.ActionTerminate); err != nil {
		return nil, err
	}
	specID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, validationError("a termination reason is required")
	}

	unlock, err := s.lockSpec(ctx, specID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	spec, err := s.Specs.FindByID(ctx, specID)
	if err != nil {
		return nil, notFound(err, "spec")
	}
	if spec.Status != model.SpecActive && spec.Status != model.SpecPendingApproval {
		return nil, fmt.Errorf("%w: cannot terminate a spec that is %s", ErrIllegalTransition, spec.Status)
	}

	end := s.today()
	if start := model.DateOf(spec.StartDate); end.Before(start) {
		end = start
	}

	err = s.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		spec.Status = model.SpecTerminated
		spec.TerminationReason = &reason
		spec.EndDate = end
		if err := s.Specs.Update(txCtx, spec); err != nil {
			return fmt.Errorf("failed to update spec: %w", err)
		}
		return s.appendHistory(txCtx, spec.ID, actor, model.ActionTerminateSpec, "reason: "+reason)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("spec terminated", zap.String("spec_code", spec.SpecCode))
	s.publish("terminated", spec)
	return toSpecResponse(spec), nil
}

// Delete removes the rows in one transaction, then the files. File removal
// failures are logged; the rows are already gone.
func (s *specService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if err := authorize(actor, authz.ActionDelete); err != nil {
		return err
	}
	specID, err := parseID(id)
	if err != nil {
		return err
	}

	unlock, err := s.lockSpec(ctx, specID)
	if err != nil {
		return err
	}
	defer unlock()

	spec, err := s.Specs.FindByIDWithUploads(ctx, specID)
	if err != nil {
		return notFound(err, "spec")
	}

	if err := s.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.Specs.Delete(txCtx, spec.ID)
	}); err != nil {
		return fmt.Errorf("failed to delete spec: %w", err)
	}

	for _, key := range []string{spec.SpecCode + ".docx", spec.SpecCode + ".pdf"} {
		if err := s.Generated.Delete(ctx, key); err != nil {
			s.log.Error("failed to delete generated file", zap.String("key", key), zap.Error(err))
		}
	}
	for _, u := range spec.Uploads {
		s.removeFile(ctx, u.Filename)
	}
	for _, key := range inlineImageKeys(spec.Content) {
		if err := s.Images.Delete(ctx, key); err != nil {
			s.log.Error("failed to delete inline image", zap.String("key", key), zap.Error(err))
		}
	}

	s.log.Info("spec deleted", zap.String("spec_code", spec.SpecCode))
	s.publish("deleted", spec)
	return nil
}

// ExpireDue moves active specs whose end date has passed to expired.
func (s *specService) ExpireDue(ctx context.Context, actor authz.Actor) (int, error) {
	if err := authorize(actor, authz.ActionExpire); err != nil {
		return 0, err
	}
	today := s.today()
	due, err := s.Specs.ListExpired(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired specs: %w", err)
	}

	expired := 0
	for _, candidate := range due {
		ok, err := s.expireOne(ctx, actor, candidate.ID, today)
		if err != nil {
			s.log.Error("failed to expire spec", zap.String("spec_code", candidate.SpecCode), zap.Error(err))
			continue
		}
		if ok {
			expired++
		}
	}
	if expired > 0 {
		s.log.Info("specs expired", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *specService) expireOne(ctx context.Context, actor authz.Actor, id uuid.UUID, today time.Time) (bool, error) {
	unlock, err := s.lockSpec(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	spec, err := s.Specs.FindByID(ctx, id)
	if err != nil {
		return false, notFound(err, "spec")
	}
	// re-check under the lock; the spec may have been extended meanwhile
	if spec.Status != model.SpecActive || !model.DateOf(spec.EndDate).Before(today) {
		return false, nil
	}

	err = s.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		spec.Status = model.SpecExpired
		if err := s.Specs.Update(txCtx, spec); err != nil {
			return fmt.Errorf("failed to update spec: %w", err)
		}
		return s.appendHistory(txCtx, spec.ID, actor, model.ActionExpireSpec,
			"expired after end date "+spec.EndDate.Format(dateLayout))
	})
	if err != nil {
		return false, err
	}
	s.publish("expired", spec)
	return true, nil
}

func (s *specService) Download(ctx context.Context, actor authz.Actor, id string, artifact Artifact) (*Download, error) {
	action := authz.ActionView
	if artifact == ArtifactWord {
		action = authz.ActionDownloadWord
	}
	if err := authorize(actor, action); err != nil {
		return nil, err
	}
	specID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	spec, err := s.Specs.FindByID(ctx, specID)
	if err != nil {
		return nil, notFound(err, "spec")
	}

	var (
		key         string
		contentType string
		store       = s.Generated
	)
	switch artifact {
	case ArtifactPDF:
		key, contentType = spec.SpecCode+".pdf", "application/pdf"
	case ArtifactWord:
		key, contentType = spec.SpecCode+".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ArtifactSigned:
		upload, err := s.Uploads.Latest(ctx, spec.ID)
		if err != nil {
			return nil, notFound(err, "uploaded file")
		}
		key, store = upload.Filename, s.Files
		contentType = "application/octet-stream"
		if strings.EqualFold(filepath.Ext(key), ".pdf") {
			contentType = "application/pdf"
		}
	default:
		return nil, validationError("unknown artifact %q", artifact)
	}

	body, err := store.Open(ctx, key)
	if err != nil {
		return nil, notFound(err, key)
	}
	return &Download{Filename: key, ContentType: contentType, Body: body}, nil
}

func (s *specService) removeFile(ctx context.Context, key string) {
	if err := s.Files.Delete(ctx, key); err != nil {
		s.log.Error("failed to delete uploaded file", zap.String("key", key), zap.Error(err))
	}
}
