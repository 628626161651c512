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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/rivet"
	"go.uber.org/rivet/rivetevent"
)

type notifier interface {
	Notify(msg string)
}

type emailNotifier struct{ sent []string }

func (n *emailNotifier) Notify(msg string) { n.sent = append(n.sent, msg) }

type smsNotifier struct{ sent []string }

func (n *smsNotifier) Notify(msg string) { n.sent = append(n.sent, msg) }

func TestInvalidFactories(t *testing.T) {
	cases := []struct {
		name   string
		target interface{}
	}{
		{"no return value", func() {}},
		{"error only", func() error { return nil }},
		{"two produced values", func() (*database, *mailer) { return nil, nil }},
		{"error not last", func() (error, *database) { return nil, nil }},
		{"variadic", func(args ...string) *database { return nil }},
		{"context not first", func(db *database, ctx context.Context) *mailer { return nil }},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rivet.New(
				rivet.WithLogger(rivetevent.NopLogger),
				rivet.Provide(tt.target),
			)
			require.Error(t, err)
		})
	}
}

func TestConstructorShapes(t *testing.T) {
	cases := []struct {
		name   string
		target interface{}
	}{
		{"value", func() *database { return &database{} }},
		{"value, error", func() (*database, error) { return &database{}, nil }},
		{"value, cleanup", func() (*database, func()) { return &database{}, func() {} }},
		{"value, cleanup, error", func() (*database, func() error, error) {
			return &database{}, func() error { return nil }, nil
		}},
		{"ctx, value, ctx cleanup, error", func(ctx context.Context) (*database, func(context.Context) error, error) {
			return &database{}, func(context.Context) error { return nil }, nil
		}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			c, err := rivet.New(
				rivet.WithLogger(rivetevent.NopLogger),
				rivet.Provide(tt.target),
			)
			require.NoError(t, err)
			var db *database
			require.NoError(t, c.GetCtx(context.Background(), &db))
			assert.NotNil(t, db)
			require.NoError(t, c.CloseCtx(context.Background()))
		})
	}
}

func TestAsBinding(t *testing.T) {
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func() *emailNotifier { return &emailNotifier{} },
			rivet.As(new(notifier))),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var n notifier
	require.NoError(t, c.Get(&n))
	var concrete *emailNotifier
	require.NoError(t, c.Get(&concrete))
	assert.Same(t, concrete, n, "interface and concrete identities share one instance")
}

func TestAsRejectsNonImplementers(t *testing.T) {
	_, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func() *database { return &database{} },
			rivet.As(new(notifier))),
	)
	var ferr *rivet.InvalidFactoryError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, err.Error(), "does not implement")
}

func TestAbstractAutoBinding(t *testing.T) {
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Abstract(new(notifier)),
		rivet.Provide(func() *emailNotifier { return &emailNotifier{} },
			rivet.WithQualifier("email")),
		rivet.Provide(func() *smsNotifier { return &smsNotifier{} },
			rivet.WithQualifier("sms")),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var email, sms notifier
	require.NoError(t, c.Get(&email, rivet.Qualified("email")))
	require.NoError(t, c.Get(&sms, rivet.Qualified("sms")))
	assert.IsType(t, &emailNotifier{}, email)
	assert.IsType(t, &smsNotifier{}, sms)
}

func TestUnknownQualifierListsAvailable(t *testing.T) {
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Abstract(new(notifier)),
		rivet.Provide(func() *emailNotifier { return &emailNotifier{} },
			rivet.WithQualifier("email")),
		rivet.Provide(func() *smsNotifier { return &smsNotifier{} },
			rivet.WithQualifier("sms")),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var n notifier
	err = c.Get(&n, rivet.Qualified("push"))
	var qerr *rivet.UnknownQualifierError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, []interface{}{"email", "sms"}, qerr.Available)
	assert.Contains(t, err.Error(), "email")
	assert.Contains(t, err.Error(), "sms")
}

func TestDuplicateQualifierOnAbstract(t *testing.T) {
	_, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Abstract(new(notifier)),
		rivet.Provide(func() *emailNotifier { return &emailNotifier{} }),
		rivet.Provide(func() *smsNotifier { return &smsNotifier{} }),
	)
	var derr *rivet.DuplicateQualifierError
	require.ErrorAs(t, err, &derr, "two unqualified implementations cannot share an interface")
}

func TestInterfaceDependency(t *testing.T) {
	type alerter struct{ n notifier }

	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Abstract(new(notifier)),
		rivet.Provide(func() *emailNotifier { return &emailNotifier{} }),
		rivet.Provide(func(n notifier) *alerter { return &alerter{n: n} }),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var a *alerter
	require.NoError(t, c.Get(&a))
	assert.IsType(t, &emailNotifier{}, a.n)
}

func TestOptionalDependency(t *testing.T) {
	type params struct {
		rivet.In

		DB     *database `optional:"true"`
		Mailer *mailer
	}

	var got params
	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func() *mailer { return &mailer{} }),
		rivet.Provide(func(p params) *repository {
			got = p
			return &repository{}
		}),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var repo *repository
	require.NoError(t, c.Get(&repo))
	assert.Nil(t, got.DB, "missing optional dependencies inject their zero value")
	assert.NotNil(t, got.Mailer)
}

func TestQualifiedInStructField(t *testing.T) {
	type params struct {
		rivet.In

		Primary *database `qualifier:"primary"`
		Replica *database `qualifier:"replica"`
	}

	c, err := rivet.New(
		rivet.WithLogger(rivetevent.NopLogger),
		rivet.Provide(func() *database { return &database{dsn: "primary://"} },
			rivet.WithQualifier("primary")),
		rivet.Provide(func() *database { return &database{dsn: "replica://"} },
			rivet.WithQualifier("replica")),
		rivet.Provide(func(p params) *repository {
			return &repository{db: p.Replica}
		}),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var repo *repository
	require.NoError(t, c.Get(&repo))
	assert.Equal(t, "replica://", repo.db.dsn)
}
