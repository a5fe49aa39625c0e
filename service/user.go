package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/zlnvch/placebot/canvas"
	"github.com/zlnvch/placebot/models"
)

// AddUser validates the cookie blob by logging in, then stores the account
// under the id the remote service reports. Re-adding an account refreshes
// its cookies.
func (s *Service) AddUser(ctx context.Context, cookies map[string]string, expirationDate int64) (models.User, error) {
	if err := ValidateUserCookies(cookies); err != nil {
		return models.User{}, err
	}

	client, err := s.NewClient()
	if err != nil {
		return models.User{}, err
	}

	info, err := client.Login(ctx, cookies)
	if err != nil {
		return models.User{}, fmt.Errorf("login check failed: %w", err)
	}

	user := models.User{
		Id:             strconv.FormatInt(info.Id, 10),
		Name:           info.Name,
		Cookies:        cookies,
		ExpirationDate: expirationDate,
	}

	if err := s.Store.UpsertUser(ctx, user); err != nil {
		return models.User{}, err
	}

	s.Charges.Mark(user.Id, info.Charges.Whole(), time.Now())
	log.Printf("✅ Added account %s (%s)", user.Name, user.Id)
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.Store.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Store.ListUsers(ctx)
}

// DeleteUser removes an account and strips it from every template that
// references it. Accounts held by a running template cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if owner, busy := s.Roster.Owner(id); busy {
		return fmt.Errorf("account is in use by template %s", owner)
	}

	templates, err := s.Store.ListTemplates(ctx)
	if err != nil {
		return err
	}
	for _, tpl := range templates {
		remaining := make([]string, 0, len(tpl.UserIds))
		for _, userId := range tpl.UserIds {
			if userId != id {
				remaining = append(remaining, userId)
			}
		}
		if len(remaining) == len(tpl.UserIds) {
			continue
		}
		tpl.UserIds = remaining
		if err := s.Store.UpdateTemplate(ctx, tpl); err != nil {
			return err
		}
		if len(remaining) == 0 {
			log.Printf("⚠️ Template %s has no accounts left", tpl.Name)
		}
	}

	if err := s.Store.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.Charges.Forget(id)
	return nil
}

// UserStatus is an account health view: a live login plus the predictor's
// current charge estimate.
type UserStatus struct {
	User      models.User     `json:"user"`
	Charges   models.Charges  `json:"charges"`
	Droplets  int             `json:"droplets"`
	Reachable bool            `json:"reachable"`
	Error     string          `json:"error,omitempty"`
	Info      canvas.UserInfo `json:"-"`
}

// CheckUserStatus performs a live login with the stored cookies and refreshes
// the charge predictor on success.
func (s *Service) CheckUserStatus(ctx context.Context, id string) (UserStatus, error) {
	user, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return UserStatus{}, err
	}

	status := UserStatus{User: user}

	client, err := s.NewClient()
	if err != nil {
		return UserStatus{}, err
	}

	info, err := client.Login(ctx, user.Cookies)
	if err != nil {
		status.Error = err.Error()
		var authErr *canvas.AuthError
		if errors.As(err, &authErr) {
			log.Printf("🔒 Account %s cookies no longer valid", user.Name)
		}
		return status, nil
	}

	status.Reachable = true
	status.Charges = info.Charges.Whole()
	status.Droplets = info.Droplets
	status.Info = info
	s.Charges.Mark(user.Id, status.Charges, time.Now())
	return status, nil
}
