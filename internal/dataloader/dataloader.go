package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/UkralStul/animeblog-service/internal/domain"
	"github.com/UkralStul/animeblog-service/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// idKey is a record id used as a loader key.
type idKey uint

func (k idKey) String() string   { return strconv.FormatUint(uint64(k), 10) }
func (k idKey) Raw() interface{} { return uint(k) }

// Loaders holds the child-record loaders of one request.
type Loaders struct {
	BlogsByUserID   *dataloader.Loader
	ReviewsByBlogID *dataloader.Loader
}

// New builds loaders backed by store. Loaders cache results, so they must
// not outlive a single request.
func New(store storage.Storage) *Loaders {
	blogsFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := toIDs(keys)
		blogs, err := store.BlogsByUserIDs(ctx, ids)
		if err != nil {
			return failAll(len(keys), err)
		}
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			results[i] = &dataloader.Result{Data: blogs[id]}
		}
		return results
	}

	reviewsFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := toIDs(keys)
		reviews, err := store.ReviewsByBlogIDs(ctx, ids)
		if err != nil {
			return failAll(len(keys), err)
		}
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			results[i] = &dataloader.Result{Data: reviews[id]}
		}
		return results
	}

	return &Loaders{
		BlogsByUserID:   dataloader.NewBatchedLoader(blogsFn, dataloader.WithWait(time.Millisecond)),
		ReviewsByBlogID: dataloader.NewBatchedLoader(reviewsFn, dataloader.WithWait(time.Millisecond)),
	}
}

func toIDs(keys dataloader.Keys) []uint {
	ids := make([]uint, len(keys))
	for i, k := range keys {
		ids[i] = k.Raw().(uint)
	}
	return ids
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

// Blogs loads the blogs of every user in userIDs, batched into one store call.
func (l *Loaders) Blogs(ctx context.Context, userIDs []uint) (map[uint][]*domain.Blog, error) {
	thunks := make([]dataloader.Thunk, len(userIDs))
	for i, id := range userIDs {
		thunks[i] = l.BlogsByUserID.Load(ctx, idKey(id))
	}

	out := make(map[uint][]*domain.Blog, len(userIDs))
	for i, thunk := range thunks {
		data, err := thunk()
		if err != nil {
			return nil, fmt.Errorf("load blogs of user %d: %w", userIDs[i], err)
		}
		blogs, _ := data.([]*domain.Blog)
		out[userIDs[i]] = blogs
	}
	return out, nil
}

// Reviews loads the reviews of every blog in blogIDs, batched into one store call.
func (l *Loaders) Reviews(ctx context.Context, blogIDs []uint) (map[uint][]*domain.Review, error) {
	thunks := make([]dataloader.Thunk, len(blogIDs))
	for i, id := range blogIDs {
		thunks[i] = l.ReviewsByBlogID.Load(ctx, idKey(id))
	}

	out := make(map[uint][]*domain.Review, len(blogIDs))
	for i, thunk := range thunks {
		data, err := thunk()
		if err != nil {
			return nil, fmt.Errorf("load reviews of blog %d: %w", blogIDs[i], err)
		}
		reviews, _ := data.([]*domain.Review)
		out[blogIDs[i]] = reviews
	}
	return out, nil
}

// Middleware injects fresh loaders into each request context.
func Middleware(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, New(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For extracts the loaders from ctx, or nil when Middleware did not run.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}
