// ABOUTME: Subject-status service with a per-token TTL cache
// ABOUTME: Concurrent fetches for the same token share one upstream call

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cache"
	"github.com/travis-wayne/fastlearners-frontend-sub005/logger"
)

// DefaultSubjectCacheTTL is the freshness window for cached subject status.
const DefaultSubjectCacheTTL = 5 * time.Minute

// SubjectService fetches and caches the caller's subject selection.
type SubjectService struct {
	upstream *UpstreamClient
	cache    *cache.Cache
	group    singleflight.Group

	// gens counts invalidations per key. A fetch stores its reply only if
	// no invalidation happened while it was in flight.
	mu   sync.Mutex
	gens map[string]uint64
}

// NewSubjectService creates a service whose cache entries live for ttl.
func NewSubjectService(upstream *UpstreamClient, c *cache.Cache) *SubjectService {
	return &SubjectService{upstream: upstream, cache: c, gens: make(map[string]uint64)}
}

// Status returns the upstream /subjects reply for token.
// Only successful replies are cached.
func (s *SubjectService) Status(ctx context.Context, token string) (*UpstreamResponse, error) {
	key := subjectCacheKey(token)
	if resp, ok := s.cached(key); ok {
		logger.FromContext(ctx).Debug("Subject status cache hit")
		return resp, nil
	}

	// The shared call outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		if resp, ok := s.cached(key); ok {
			return resp, nil
		}
		gen := s.generation(key)
		resp, err := s.upstream.Do(shared, UpstreamRequest{Method: http.MethodGet, Path: "subjects", Token: token})
		if err != nil {
			return nil, err
		}
		if resp.OK() {
			s.store(key, gen, resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*UpstreamResponse), nil
}

// UpdateSelective posts the selected subject ids form-encoded as subjects[].
// A successful update drops the caller's cached status.
func (s *SubjectService) UpdateSelective(ctx context.Context, token string, subjectIDs []int64) (*UpstreamResponse, error) {
	form := url.Values{}
	for _, id := range subjectIDs {
		form.Add("subjects[]", strconv.FormatInt(id, 10))
	}

	resp, err := s.upstream.Do(ctx, UpstreamRequest{
		Method:      http.MethodPost,
		Path:        "subjects/update-selective",
		Token:       token,
		Body:        strings.NewReader(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		s.Invalidate(token)
	}
	return resp, nil
}

// Invalidate drops the cached status for token.
func (s *SubjectService) Invalidate(token string) {
	key := subjectCacheKey(token)
	s.mu.Lock()
	s.gens[key]++
	s.cache.Clear(key)
	s.mu.Unlock()
	s.group.Forget(key)
}

func (s *SubjectService) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[key]
}

// store caches resp unless key was invalidated after gen was read.
func (s *SubjectService) store(key string, gen uint64, resp *UpstreamResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[key] != gen {
		return
	}
	s.cache.Set(key, resp)
}

func (s *SubjectService) cached(key string) (*UpstreamResponse, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	resp, ok := v.(*UpstreamResponse)
	return resp, ok
}

// Tokens are hashed so raw bearer strings never sit in memory as map keys.
func subjectCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "subjects:" + hex.EncodeToString(sum[:])
}
