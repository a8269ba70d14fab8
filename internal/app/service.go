package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"snippets/api/internal/auth"
	"snippets/api/internal/authpw"
	"snippets/api/internal/export"
	"snippets/api/internal/search"
	"snippets/api/internal/snippet"
	"snippets/api/internal/store"
	"snippets/api/internal/util"
)

const weekLayout = "2006-01-02"

// dataStore is the persistence surface the service needs. Implemented
// by store.PostgresStore; tests swap in a fake.
type dataStore interface {
	Ping(ctx context.Context) error
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	EnsureAuthor(ctx context.Context, email string) error
	GetAuthor(ctx context.Context, email string) (snippet.Author, error)
	ListAuthors(ctx context.Context) ([]snippet.Author, error)
	UpsertAuthorSettings(ctx context.Context, author snippet.Author) error
	SetAdmin(ctx context.Context, email string, isAdmin bool) error
	SnippetsForUser(ctx context.Context, email string) ([]snippet.Snippet, error)
	SnippetsForWeek(ctx context.Context, week time.Time) ([]snippet.Snippet, error)
	UpsertSnippet(ctx context.Context, item snippet.Snippet) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// sessionStore holds refresh sessions. Redis when configured, the
// Postgres store otherwise; both satisfy this.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, email string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type mailer interface {
	IsConfigured() bool
	SendVerificationEmail(to, userName, verificationURL string) error
	SendPasswordResetEmail(to, userName, resetURL string) error
	SendReminderEmail(to, baseURL string) error
	SendDigestNoticeEmail(to, baseURL string, hasSnippet bool) error
}

type searcher interface {
	Search(q search.Query) search.Response
	IndexSnippet(rec search.SnippetRecord)
}

type snippetLog interface {
	CommitSnippet(email, week, text string) (store.CommitInfo, error)
	History(email string, limit int) ([]store.CommitInfo, error)
}

type archiver interface {
	PutDigest(ctx context.Context, week time.Time, filename, mimeType string, data []byte) error
	GetDigest(ctx context.Context, week time.Time, filename string) ([]byte, error)
}

// Options wires the service's collaborators. Mail, Search, SnippetLog
// and Archive may be nil; the matching endpoints degrade.
type Options struct {
	Store       dataStore
	Sessions    sessionStore
	AuthPW      *authpw.Service
	Mail        mailer
	Search      searcher
	SnippetLog  snippetLog
	Archive     archiver
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	BaseURL     string
	AdminEmails []string
}

type Service struct {
	store       dataStore
	sessions    sessionStore
	authpw      *authpw.Service
	mail        mailer
	search      searcher
	snippetLog  snippetLog
	archive     archiver
	exporter    *export.Service
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	baseURL     string
	adminEmails map[string]bool
	now         func() time.Time
}

func New(opts Options) *Service {
	admins := make(map[string]bool, len(opts.AdminEmails))
	for _, email := range opts.AdminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = true
	}
	s := &Service{
		store:       opts.Store,
		sessions:    opts.Sessions,
		authpw:      opts.AuthPW,
		mail:        opts.Mail,
		search:      opts.Search,
		snippetLog:  opts.SnippetLog,
		archive:     opts.Archive,
		secret:      []byte(opts.JWTSecret),
		accessTTL:   opts.AccessTTL,
		refreshTTL:  opts.RefreshTTL,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		adminEmails: admins,
		now:         time.Now,
	}
	s.exporter = export.NewService(s)
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) SMTPConfigured() bool {
	return s.mail != nil && s.mail.IsConfigured()
}

// Bootstrap promotes configured admin accounts that already exist.
// Accounts created later are promoted on their first sign-in.
func (s *Service) Bootstrap(ctx context.Context) error {
	for email := range s.adminEmails {
		user, err := s.store.GetUserByEmail(ctx, email)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("bootstrap admin %s: %w", email, err)
		}
		if !user.IsAdmin {
			if err := s.store.SetAdmin(ctx, user.Email, true); err != nil {
				return fmt.Errorf("bootstrap admin %s: %w", email, err)
			}
		}
	}
	return nil
}

// Session is an authenticated caller.
type Session struct {
	Token        string
	RefreshToken string
	Email        string
	DisplayName  string
	IsAdmin      bool
	JTI          string
	ExpiresAt    time.Time
}

// CreateSession issues an access/refresh token pair for a signed-in
// account. Configured admin emails are promoted here if needed.
func (s *Service) CreateSession(ctx context.Context, email string) (Session, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return Session{}, err
	}
	if s.adminEmails[user.Email] && !user.IsAdmin {
		if err := s.store.SetAdmin(ctx, user.Email, true); err != nil {
			return Session{}, err
		}
		user.IsAdmin = true
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	jti := util.NewID("jti")
	expiresAt := now.Add(s.accessTTL)
	token, err := auth.IssueToken(s.secret, auth.Claims{
		Sub:   user.Email,
		Name:  user.DisplayName,
		Admin: user.IsAdmin,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}
	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.Email, now.Add(s.refreshTTL)); err != nil {
		return Session{}, err
	}
	return Session{
		Token:        token,
		RefreshToken: refresh,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		IsAdmin:      user.IsAdmin,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh rotates a refresh token: the old one is revoked and a fresh
// session is issued against the current account record.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	hash := auth.HashToken(refreshToken)
	holder, err := s.sessions.LookupRefreshSession(ctx, hash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	user, err := s.store.GetUserByEmail(ctx, holder.Email)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, hash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// SessionFromToken validates an access token against the revocation
// list and the account it was issued for.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken(s.secret, token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}
	user, err := s.store.GetUserByEmail(ctx, claims.Sub)
	if err != nil {
		if store.IsNotFound(err) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	return Session{
		Token:       token,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsAdmin:     user.IsAdmin,
		JTI:         claims.JTI,
		ExpiresAt:   time.Unix(claims.Exp, 0),
	}, nil
}

// Logout revokes the access token's JTI and the refresh token.
func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		if err := s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			return err
		}
	}
	return nil
}

// SendVerificationMail delivers the sign-up verification link.
func (s *Service) SendVerificationMail(email, displayName, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := s.baseURL + "/verify-email?token=" + token
	if err := s.mail.SendVerificationEmail(email, displayName, url); err != nil {
		log.Printf("send verification mail to %s: %v", email, err)
	}
}

// SendPasswordResetMail delivers the password reset link.
func (s *Service) SendPasswordResetMail(email, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := s.baseURL + "/reset-password?token=" + token
	if err := s.mail.SendPasswordResetEmail(email, email, url); err != nil {
		log.Printf("send reset mail to %s: %v", email, err)
	}
}

// resolveTarget normalizes the "u" parameter: blank means the viewer
// themselves.
func resolveTarget(viewer Session, target string) string {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return viewer.Email
	}
	return target
}

// parseWeek turns a raw ?week= value into a validated anchor, falling
// back to fallback(today) when blank.
func (s *Service) parseWeek(raw string, fallback func(time.Time) time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback(s.now()), nil
	}
	parsed, err := time.Parse(weekLayout, raw)
	if err != nil {
		return time.Time{}, domainError(http.StatusUnprocessableEntity, "INVALID_WEEK", "week must be a YYYY-MM-DD date", nil)
	}
	if !snippet.IsAnchor(parsed) {
		return time.Time{}, domainError(http.StatusUnprocessableEntity, "INVALID_WEEK", "week must be a Monday", nil)
	}
	return parsed, nil
}
