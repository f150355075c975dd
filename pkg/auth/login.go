package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// LoginPath 登录接口路径
const LoginPath = "/auth_api/login/"

// SessionCookie 服务端下发的会话 cookie 名
const SessionCookie = "sessionid"

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = errors.New("Invalid credentials")

// ErrNoSession 登录成功但响应里没有令牌
var ErrNoSession = errors.New("login response carried no session token")

// Credentials 登录凭据
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate 校验登录字段
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Username, validation.Required.Error("Username is required")),
		validation.Field(&c.Password,
			validation.Required.Error("Password must be at least 6 characters"),
			validation.RuneLength(6, 0).Error("Password must be at least 6 characters")),
	)
}

// Session 登录结果
type Session struct {
	Username string
	Token    string
}

type loginResponse struct {
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	Token string `json:"token"`
	Error string `json:"error"`
}

// Authenticator 负责登录并把令牌写入 TokenStore
type Authenticator struct {
	baseURL    string
	httpClient *http.Client
	store      *TokenStore
}

// NewAuthenticator 创建认证器
func NewAuthenticator(baseURL string, httpClient *http.Client, store *TokenStore) *Authenticator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Authenticator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		store:      store,
	}
}

// Login 登录并保存会话令牌
func (a *Authenticator) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+LoginPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read login response: %w", err)
	}

	var result loginResponse
	_ = json.Unmarshal(respBody, &result)

	if resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidCredentials
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := result.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("login failed (status %d): %s", resp.StatusCode, msg)
	}

	token := result.Token
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie && c.Value != "" {
			token = c.Value
			break
		}
	}
	if token == "" {
		return nil, ErrNoSession
	}

	if err := a.store.Set(token); err != nil {
		return nil, err
	}

	username := result.User.Username
	if username == "" {
		username = creds.Username
	}
	return &Session{Username: username, Token: token}, nil
}

// Logout 清除本地令牌
func (a *Authenticator) Logout() error {
	return a.store.Clear()
}
