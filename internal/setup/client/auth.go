package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/robalyx/rowatch/pkg/utils"
	"go.uber.org/zap"
)

// AuthenticatedUserURL returns the account that owns the session cookie.
const AuthenticatedUserURL = "https://users.roblox.com/v1/users/authenticated"

var (
	ErrUnauthorized = errors.New("session cookie was rejected")
	ErrAuthFailed   = errors.New("failed to resolve authenticated user")
)

// AuthenticatedUser is the account behind the session cookie.
type AuthenticatedUser struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// ResolveUser looks up the account that owns cookie, retrying transient
// failures with the given options. A rejected cookie is not retried.
func ResolveUser(
	ctx context.Context, httpClient *http.Client, endpoint, cookie string,
	opts utils.RetryOptions, logger *zap.Logger,
) (*AuthenticatedUser, error) {
	user, err := utils.WithRetry(ctx, func() (*AuthenticatedUser, error) {
		user, err := fetchAuthenticatedUser(ctx, httpClient, endpoint, cookie)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return nil, backoff.Permanent(err)
			}

			logger.Warn("Failed to resolve authenticated user, retrying", zap.Error(err))

			return nil, err
		}

		return user, nil
	}, opts)
	if err != nil {
		return nil, err
	}

	logger.Info("Resolved authenticated user",
		zap.Int64("userID", user.ID),
		zap.String("name", user.Name))

	return user, nil
}

func fetchAuthenticatedUser(ctx context.Context, httpClient *http.Client, endpoint, cookie string) (*AuthenticatedUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	req.Header.Set("Cookie", ".ROBLOSECURITY="+cookie)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrAuthFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrAuthFailed, resp.StatusCode, string(body))
	}

	var user AuthenticatedUser
	if err := sonic.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %w", ErrAuthFailed, err)
	}

	if user.ID <= 0 {
		return nil, fmt.Errorf("%w: response has no user id", ErrAuthFailed)
	}

	return &user, nil
}
