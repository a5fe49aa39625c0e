package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zlnvch/placebot/engine"
	"github.com/zlnvch/placebot/models"
	"github.com/zlnvch/placebot/sharecode"
)

// ErrAccountsBusy means every start path was blocked because another running
// template holds one of the requested accounts. The template is queued and
// starts automatically once the accounts free up.
var ErrAccountsBusy = errors.New("accounts busy, template queued")

var ErrAlreadyRunning = errors.New("template is already running")

var ErrDuplicateName = errors.New("template name is already in use")

// TemplateView is a stored template overlaid with its live runner state.
type TemplateView struct {
	models.Template
	engine.State
}

func (s *Service) CreateTemplate(ctx context.Context, tpl models.Template) (models.Template, error) {
	if err := ValidateTemplate(tpl); err != nil {
		return models.Template{}, err
	}

	// Names are the operator-facing handle, so they must be unique
	existing, err := s.Store.ListTemplates(ctx)
	if err != nil {
		return models.Template{}, err
	}
	for _, other := range existing {
		if other.Name == tpl.Name {
			return models.Template{}, fmt.Errorf("%w: %s", ErrDuplicateName, tpl.Name)
		}
	}

	for _, id := range tpl.UserIds {
		if _, err := s.Store.GetUser(ctx, id); err != nil {
			return models.Template{}, fmt.Errorf("account %s: %w", id, err)
		}
	}

	created, err := s.Store.CreateTemplate(ctx, tpl)
	if err != nil {
		return models.Template{}, err
	}

	if created.EnableAutostart {
		if err := s.StartTemplate(ctx, created.Id); err != nil && !errors.Is(err, ErrAccountsBusy) {
			log.Printf("Autostart of template %s failed: %v", created.Id, err)
		}
	}

	return created, nil
}

func (s *Service) GetTemplate(ctx context.Context, id string) (TemplateView, error) {
	tpl, err := s.Store.GetTemplate(ctx, id)
	if err != nil {
		return TemplateView{}, err
	}
	return s.withState(tpl), nil
}

func (s *Service) ListTemplates(ctx context.Context) ([]TemplateView, error) {
	templates, err := s.Store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]TemplateView, 0, len(templates))
	for _, tpl := range templates {
		views = append(views, s.withState(tpl))
	}
	return views, nil
}

// UpdateTemplate persists an edit and, when the template is running, pushes
// the new definition into the live runner mid-flight.
func (s *Service) UpdateTemplate(ctx context.Context, tpl models.Template) error {
	if err := ValidateTemplate(tpl); err != nil {
		return err
	}

	if err := s.Store.UpdateTemplate(ctx, tpl); err != nil {
		return err
	}

	s.mu.Lock()
	h, running := s.runners[tpl.Id]
	s.mu.Unlock()
	if running {
		// A live edit may add accounts another template owns
		if err := s.Roster.Reclaim(tpl.Id, tpl.UserIds); err != nil {
			return err
		}
		h.runner.Update(tpl)
	}

	return nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.StopTemplate(ctx, id); err != nil && !errors.Is(err, errNotRunning) {
		return err
	}

	s.dequeueAutostart(id)
	return s.Store.DeleteTemplate(ctx, id)
}

// StartTemplate launches the template's runner. When another running
// template holds one of its accounts the template joins the autostart queue
// instead and ErrAccountsBusy is returned.
func (s *Service) StartTemplate(ctx context.Context, id string) error {
	tpl, err := s.Store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.runners[id]; running {
		return ErrAlreadyRunning
	}

	if err := s.Roster.Claim(id, tpl.UserIds); err != nil {
		s.enqueueAutostartLocked(id)
		log.Printf("⏳ Template %s queued: %v", tpl.Name, err)
		return ErrAccountsBusy
	}

	s.startRunnerLocked(tpl)
	s.publishLog(tpl.Id, "", fmt.Sprintf("Started template %s", tpl.Name))
	return nil
}

var errNotRunning = errors.New("template is not running")

func (s *Service) StopTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	h, ok := s.runners[id]
	s.mu.Unlock()
	if !ok {
		s.dequeueAutostart(id)
		return errNotRunning
	}

	h.cancel()
	h.runner.Stop()

	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return errors.New("runner did not stop in time")
	}

	s.publishLog(id, "", "Stopped template")
	return nil
}

// ImportImage decodes a share code into a template image.
func (s *Service) ImportImage(code string) (models.Image, error) {
	return sharecode.Decode(code)
}

// ExportShareCode renders a stored template's image as a share code.
func (s *Service) ExportShareCode(ctx context.Context, id string) (string, error) {
	tpl, err := s.Store.GetTemplate(ctx, id)
	if err != nil {
		return "", err
	}
	return sharecode.Encode(tpl.Image)
}

func (s *Service) withState(tpl models.Template) TemplateView {
	view := TemplateView{Template: tpl}

	s.mu.Lock()
	h, ok := s.runners[tpl.Id]
	s.mu.Unlock()
	if ok {
		view.State = h.runner.State()
	} else {
		view.State = engine.State{
			Status:          engine.StatusWaiting,
			PixelsRemaining: tpl.Image.TotalPixels(),
			TotalPixels:     tpl.Image.TotalPixels(),
		}
	}
	return view
}

// startRunnerLocked spawns the runner goroutine. Caller holds s.mu and has
// already claimed the template's accounts.
func (s *Service) startRunnerLocked(tpl models.Template) {
	runner := engine.NewRunner(tpl, storeDirectory{s}, s.Settings, s.Charges, s.Broker, s.NewClient, s.StatusBatcher)

	ctx, cancel := context.WithCancel(context.Background())
	h := &runnerHandle{runner: runner, cancel: cancel, done: make(chan struct{})}
	s.runners[tpl.Id] = h

	go func() {
		defer close(h.done)
		runner.Run(ctx)
		s.finishRunner(tpl.Id)
	}()
}

// finishRunner is the single teardown path: whatever ended the runner, the
// accounts are released here and queued templates get their chance.
func (s *Service) finishRunner(id string) {
	s.mu.Lock()
	delete(s.runners, id)
	s.Roster.Release(id)
	s.mu.Unlock()

	s.processAutostart()
}
