// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package rivet_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"go.uber.org/rivet"
	"go.uber.org/rivet/config"
	"go.uber.org/rivet/internal/rivetlog"
	"go.uber.org/rivet/rivetevent"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type database struct {
	dsn string
}

type repository struct {
	db *database
}

type mailer struct {
	sent []string
}

func newDatabase() *database { return &database{dsn: "memory://"} }
func newRepository(db *database) *repository { return &repository{db: db} }

func newStore(t *testing.T, values map[string]interface{}) *config.Store {
	t.Helper()
	store, err := config.New(config.Static(values))
	require.NoError(t, err)
	return store
}

func TestNewValidatesEagerly(t *testing.T) {
	t.Run("empty container builds", func(t *testing.T) {
		c, err := rivet.New(rivet.WithLogger(rivetevent.NopLogger))
		require.NoError(t, err)
		require.NoError(t, c.Close())
	})

	t.Run("non-function constructor", func(t *testing.T) {
		_, err := rivet.New(
			rivet.WithLogger(rivetevent.NopLogger),
			rivet.Provide(42),
		)
		var ferr *rivet.InvalidFactoryError
		require.ErrorAs(t, err, &ferr)
	})

	t.Run("unknown dependency names the dependent", func(t *testing.T) {
		_, err := rivet.New(
			rivet.WithLogger(rivetevent.NopLogger),
			rivet.Provide(newRepository),
		)
		var uerr *rivet.UnknownServiceError
		require.ErrorAs(t, err, &uerr)
		assert.Contains(t, err.Error(), "required by")
		assert.Contains(t, err.Error(), "repository")
	})
}

func TestSingletonResolvesOnce(t *testing.T) {
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(newDatabase),
		rivet.Provide(newRepository),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var first, second *database
	require.NoError(t, c.Get(&first))
	require.NoError(t, c.Get(&second))
	assert.Same(t, first, second)

	var repo *repository
	require.NoError(t, c.Get(&repo))
	assert.Same(t, first, repo.db, "dependency resolution must share the singleton cache")
}

func TestSingletonConcurrentFirstAccess(t *testing.T) {
	var built atomic.Int64
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func() *database {
			built.Add(1)
			time.Sleep(10 * time.Millisecond)
			return &database{}
		}),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	const n = 8
	results := make([]*database, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Get(&results[i])
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}

	assert.Equal(t, int64(1), built.Load(), "exactly one construction despite concurrent first access")
	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestConstructorErrorPropagates(t *testing.T) {
	boom := errors.New("no connection")
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func() (*database, error) { return nil, boom }),
		rivet.Provide(newRepository),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var repo *repository
	err = c.Get(&repo)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "constructing")
}

func TestQualifiers(t *testing.T) {
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func() *database { return &database{dsn: "primary://"} },
			rivet.WithQualifier("primary")),
		rivet.Provide(func() *database { return &database{dsn: "replica://"} },
			rivet.WithQualifier("replica")),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var primary, replica *database
	require.NoError(t, c.Get(&primary, rivet.Qualified("primary")))
	require.NoError(t, c.Get(&replica, rivet.Qualified("replica")))
	assert.Equal(t, "primary://", primary.dsn)
	assert.Equal(t, "replica://", replica.dsn)

	var missing *database
	err = c.Get(&missing)
	var uerr *rivet.UnknownServiceError
	require.ErrorAs(t, err, &uerr, "the unqualified identity was never registered")
}

func TestSupply(t *testing.T) {
	m := &mailer{}
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Supply(m),
		rivet.Provide(func(ml *mailer) *repository { return &repository{} }),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	got, err := rivet.Resolve[*mailer](c)
	require.NoError(t, err)
	assert.Same(t, m, got)

	assert.Panics(t, func() { rivet.Supply(nil) })
	assert.Panics(t, func() { rivet.Supply(errors.New("nope")) })
}

func TestConfigInjection(t *testing.T) {
	store := newStore(t, map[string]interface{}{
		"db.host":    "localhost",
		"db.port":    5432,
		"db.timeout": "250ms",
		"app.name":   "orders",
		"app.banner": "${app.name} on ${db.host}",
	})

	type dbParams struct {
		rivet.In

		Host    string        `config:"db.host"`
		Port    int           `config:"db.port"`
		Timeout time.Duration `config:"db.timeout"`
		Banner  string        `config:"app.banner"`
		Inline  string        `config:"${db.host}:${db.port}"`
	}

	var got dbParams
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.WithConfig(store),
		rivet.Provide(func(p dbParams) *database {
			got = p
			return &database{dsn: p.Inline}
		}),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	db, err := rivet.Resolve[*database](c)
	require.NoError(t, err)
	assert.Equal(t, "localhost:5432", db.dsn)
	assert.Equal(t, "localhost", got.Host)
	assert.Equal(t, 5432, got.Port)
	assert.Equal(t, 250*time.Millisecond, got.Timeout)
	assert.Equal(t, "orders on localhost", got.Banner)
}

func TestUnknownConfigKeyFailsNew(t *testing.T) {
	store := newStore(t, map[string]interface{}{"db.host": "localhost"})

	type params struct {
		rivet.In

		Port int `config:"db.port"`
	}

	_, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.WithConfig(store),
		rivet.Provide(func(p params) *database { return &database{} }),
	)
	var kerr *config.UnknownKeyError
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, "db.port", kerr.Key)
}

func TestContextBoundServices(t *testing.T) {
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func(ctx context.Context) *database { return &database{} }),
		rivet.Provide(newRepository),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var db *database
	err = c.Get(&db)
	var cerr *rivet.ContextRequiredError
	require.ErrorAs(t, err, &cerr)

	// Context-boundness is transitive: the repository's own constructor
	// takes no context, but its dependency's does.
	var repo *repository
	err = c.Get(&repo)
	require.ErrorAs(t, err, &cerr)

	require.NoError(t, c.GetCtx(context.Background(), &repo))
	require.NotNil(t, repo.db)
}

func TestCloseDrainsSingletonsLIFO(t *testing.T) {
	var order []string
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func() (*database, func()) {
			return &database{}, func() { order = append(order, "database") }
		}),
		rivet.Provide(func(db *database) (*repository, func()) {
			return &repository{db: db}, func() { order = append(order, "repository") }
		}),
	)
	require.NoError(t, err)

	_, err = rivet.Resolve[*repository](c)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.Equal(t, []string{"repository", "database"}, order,
		"cleanups must run in reverse construction order")

	// Close is idempotent, and the container rejects use afterwards.
	require.NoError(t, c.Close())
	var db *database
	assert.ErrorIs(t, c.Get(&db), rivet.ErrContainerClosed)
}

func TestCloseAggregatesErrors(t *testing.T) {
	errDB := errors.New("db close failed")
	errMQ := errors.New("mq close failed")
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func() (*database, func() error) {
			return &database{}, func() error { return errDB }
		}),
		rivet.Provide(func(db *database) (*mailer, func() error) {
			return &mailer{}, func() error { return errMQ }
		}),
	)
	require.NoError(t, err)

	_, err = rivet.Resolve[*mailer](c)
	require.NoError(t, err)

	err = c.Close()
	var cerr *rivet.CloseError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Errors(), 2)
	assert.ErrorIs(t, err, errDB)
	assert.ErrorIs(t, err, errMQ)
}

func TestCloseWithContextCleanup(t *testing.T) {
	var closed bool
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func() (*database, func(context.Context) error) {
			return &database{}, func(context.Context) error {
				closed = true
				return nil
			}
		}),
	)
	require.NoError(t, err)

	_, err = rivet.Resolve[*database](c)
	require.NoError(t, err)

	err = c.Close()
	var cerr *rivet.ContextRequiredError
	require.ErrorAs(t, err, &cerr)
	assert.False(t, closed, "a refused Close must not drain anything")

	require.NoError(t, c.CloseCtx(context.Background()))
	assert.True(t, closed)
}

func TestInvoke(t *testing.T) {
	t.Run("resolves parameters", func(t *testing.T) {
		c, err := rivet.New(
			rivet.WithLogger(rivetevent.NopLogger),
			rivet.Provide(newDatabase),
		)
		require.NoError(t, err)
		defer func() { require.NoError(t, c.Close()) }()

		called := false
		require.NoError(t, c.Invoke(func(db *database) {
			called = true
			assert.NotNil(t, db)
		}))
		assert.True(t, called)
	})

	t.Run("returns the function's error", func(t *testing.T) {
		c, err := rivet.New(
			rivet.WithLogger(rivetevent.NopLogger),
			rivet.Provide(newDatabase),
		)
		require.NoError(t, err)
		defer func() { require.NoError(t, c.Close()) }()

		boom := errors.New("bad handler")
		assert.ErrorIs(t, c.Invoke(func(db *database) error { return boom }), boom)
	})

	t.Run("scoped dependency gets a call-scoped lifetime", func(t *testing.T) {
		var cleaned bool
		c, err := rivet.New(
			rivet.WithLogger(rivetevent.NopLogger),
			rivet.Provide(func() (*database, func()) {
				return &database{}, func() { cleaned = true }
			}, rivet.WithLifetime(rivet.Scoped)),
		)
		require.NoError(t, err)
		defer func() { require.NoError(t, c.Close()) }()

		require.NoError(t, c.Invoke(func(db *database) {
			assert.False(t, cleaned, "scope must stay open during the call")
		}))
		assert.True(t, cleaned, "the call's scope must close after it returns")
	})

	t.Run("rejects non-functions", func(t *testing.T) {
		c, err := rivet.New(rivet.WithLogger(rivetevent.NopLogger))
		require.NoError(t, err)
		defer func() { require.NoError(t, c.Close()) }()

		var ferr *rivet.InvalidFactoryError
		require.ErrorAs(t, c.Invoke("not a function"), &ferr)
	})
}

func TestResolveHelpers(t *testing.T) {
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(newDatabase),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	db, err := rivet.Resolve[*database](c)
	require.NoError(t, err)
	assert.NotNil(t, db)

	assert.Same(t, db, rivet.MustResolve[*database](c))
	assert.Panics(t, func() { rivet.MustResolve[*mailer](c) })
}

func TestEvents(t *testing.T) {
	spy := new(rivetlog.Spy)
	store := newStore(t, map[string]interface{}{"app.name": "orders"})

	c, err := rivet.New(
		rivet.WithLogger(spy),
		rivet.WithConfig(store),
		rivet.Provide(newDatabase),
		rivet.Module("mail",
			rivet.Provide(func() *mailer { return &mailer{} }),
		),
		rivet.Supply(&repository{}),
	)
	require.NoError(t, err)

	types := spy.EventTypes()
	assert.Equal(t, []string{"Provided", "Provided", "Supplied", "Validated"}, types)

	var moduleName string
	for _, e := range spy.Events() {
		if p, ok := e.(*rivetevent.Provided); ok && p.ModuleName != "" {
			moduleName = p.ModuleName
		}
	}
	assert.Equal(t, "mail", moduleName)

	spy.Reset()
	sc, err := c.BeginScope()
	require.NoError(t, err)
	require.NoError(t, sc.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, []string{"ScopeOpened", "ScopeClosed", "Closed"}, spy.EventTypes())
}
