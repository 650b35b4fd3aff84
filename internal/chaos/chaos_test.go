// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package chaos

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

type countingLoader struct{ calls int }

func (l *countingLoader) LoadRows(context.Context, resolver.ResolvedLocation, model.Schema) ([]model.Row, error) {
	l.calls++
	return nil, nil
}

type countingWriter struct{ calls int }

func (w *countingWriter) Write(context.Context, resolver.ResolvedLocation, model.Schema, []model.Row) error {
	w.calls++
	return nil
}

type countingRegistrar struct{ calls int }

func (r *countingRegistrar) RegisterDataset(context.Context, string, model.TableRef) (ident.DatasetID, int, error) {
	r.calls++
	return ident.NewDatasetID(), 1, nil
}

func TestWithLoaderZeroProbReturnsDelegateUnwrapped(t *testing.T) {
	delegate := &countingLoader{}
	loader := WithLoader(delegate, 0)
	assert.Same(t, delegate, loader)
}

func TestWithLoaderAlwaysChaos(t *testing.T) {
	delegate := &countingLoader{}
	loader := WithLoader(delegate, 1)

	_, err := loader.LoadRows(context.Background(), resolver.ResolvedLocation{}, model.Schema{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChaos))
	assert.Equal(t, 0, delegate.calls)
}

func TestWithLoaderNeverChaos(t *testing.T) {
	delegate := &countingLoader{}
	loader := WithLoader(delegate, 0)

	_, err := loader.LoadRows(context.Background(), resolver.ResolvedLocation{}, model.Schema{})
	require.NoError(t, err)
	assert.Equal(t, 1, delegate.calls)
}

func TestWithWriterAlwaysChaos(t *testing.T) {
	delegate := &countingWriter{}
	writer := WithWriter(delegate, 1)

	err := writer.Write(context.Background(), resolver.ResolvedLocation{}, model.Schema{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChaos))
	assert.Equal(t, 0, delegate.calls)
}

func TestWithWriterNeverChaos(t *testing.T) {
	delegate := &countingWriter{}
	writer := WithWriter(delegate, 0)

	err := writer.Write(context.Background(), resolver.ResolvedLocation{}, model.Schema{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, delegate.calls)
}

func TestWithRegistrarAlwaysChaos(t *testing.T) {
	delegate := &countingRegistrar{}
	registrar := WithRegistrar(delegate, 1)

	_, _, err := registrar.RegisterDataset(context.Background(), "name", model.TableRef{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChaos))
	assert.Equal(t, 0, delegate.calls)
}

