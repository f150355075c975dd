// Package auth keeps the translation service session token and performs login.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore 保存当前会话令牌
//
// 令牌可选地持久化到文件，首次读取时才加载。并发安全。
type TokenStore struct {
	mu     sync.RWMutex
	path   string
	token  string
	loaded bool
	now    func() time.Time
}

// NewTokenStore 创建令牌存储，path 为空时只保存在内存中
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path, now: time.Now}
}

// NewStaticTokenStore 使用固定令牌，不读写文件
func NewStaticTokenStore(token string) *TokenStore {
	return &TokenStore{token: strings.TrimSpace(token), loaded: true, now: time.Now}
}

// Token 返回当前可用的令牌；未登录或 JWT 已过期时返回空字符串
func (s *TokenStore) Token() string {
	s.ensureLoaded()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return ""
	}
	if exp, ok := expiresAt(s.token); ok && !s.now().Before(exp) {
		return ""
	}
	return s.token
}

// ExpiresAt 返回 JWT 令牌的过期时间，非 JWT 令牌返回 false
func (s *TokenStore) ExpiresAt() (time.Time, bool) {
	s.ensureLoaded()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return expiresAt(s.token)
}

// Set 保存新令牌
func (s *TokenStore) Set(token string) error {
	token = strings.TrimSpace(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.loaded = true

	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Clear 清除令牌（登出）
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.loaded = true

	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

func (s *TokenStore) ensureLoaded() {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return
	}
	s.loaded = true

	if s.path == "" {
		return
	}
	// 文件不存在视为未登录
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	s.token = strings.TrimSpace(string(data))
}

// expiresAt 只读取 exp 声明，不校验签名；签名由服务端负责
func expiresAt(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
