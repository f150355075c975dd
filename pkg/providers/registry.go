package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry 翻译后端注册表
type Registry struct {
	mu          sync.RWMutex
	translators map[string]Translator
}

// NewRegistry 创建新的注册表
func NewRegistry() *Registry {
	return &Registry{
		translators: make(map[string]Translator),
	}
}

// Register 注册翻译后端
func (r *Registry) Register(name string, t Translator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.translators[name]; exists {
		return fmt.Errorf("translator %s already registered", name)
	}

	r.translators[name] = t
	return nil
}

// Get 获取翻译后端
func (r *Registry) Get(name string) (Translator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.translators[name]
	if !exists {
		return nil, fmt.Errorf("translator %s not found", name)
	}

	return t, nil
}

// List 列出所有翻译后端，按名称排序
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.translators))
	for name := range r.translators {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
