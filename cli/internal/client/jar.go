// ABOUTME: Cookie jar that persists the BFF session between flctl invocations
// ABOUTME: Stores only cookie names and values for one backend URL

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
)

// SessionJar is an http.CookieJar backed by a JSON file.
type SessionJar struct {
	path string
	base *url.URL
	jar  *cookiejar.Jar
}

type savedSession struct {
	BaseURL string        `json:"base_url"`
	Cookies []savedCookie `json:"cookies"`
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DefaultSessionPath returns $XDG_CONFIG_HOME/fastlearners/session.json
// (or the platform equivalent).
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(dir, "fastlearners", "session.json"), nil
}

// LoadSessionJar opens the jar at path for baseURL. A missing file, or one
// saved for a different backend, yields an empty jar.
func LoadSessionJar(path, baseURL string) (*SessionJar, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &SessionJar{path: path, base: base, jar: jar}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("parsing session file %s: %w", path, err)
	}
	if saved.BaseURL != base.String() {
		return j, nil
	}
	cookies := make([]*http.Cookie, 0, len(saved.Cookies))
	for _, c := range saved.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(base, cookies)
	return j, nil
}

func (j *SessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
}

func (j *SessionJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// Save writes the backend's cookies to disk, or removes the file when none remain.
func (j *SessionJar) Save() error {
	cookies := j.jar.Cookies(j.base)
	if len(cookies) == 0 {
		if err := os.Remove(j.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing session file: %w", err)
		}
		return nil
	}

	saved := savedSession{BaseURL: j.base.String()}
	for _, c := range cookies {
		saved.Cookies = append(saved.Cookies, savedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	if err := os.WriteFile(j.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}
