//go:build js && wasm

package store

import (
	"syscall/js"
)

// LocalStorage is the browser's window.localStorage.
type LocalStorage struct {
	storage js.Value
}

// NewLocalStorage binds to window.localStorage.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{storage: js.Global().Get("localStorage")}
}

// Get returns the localStorage item for key.
func (l *LocalStorage) Get(key string) (string, bool) {
	v := l.storage.Call("getItem", key)
	if v.IsNull() || v.IsUndefined() {
		return "", false
	}
	return v.String(), true
}

// Set writes key to localStorage.
func (l *LocalStorage) Set(key, value string) {
	l.storage.Call("setItem", key, value)
}

// Remove deletes key from localStorage.
func (l *LocalStorage) Remove(key string) {
	l.storage.Call("removeItem", key)
}

var _ Store = (*LocalStorage)(nil)
