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

package resolver

import (
	"context"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver/cond"
)

// Request is one resolution ask: locate the physical data for a
// dataset's table at a given period, optionally in the context of a
// Project whose resolver_overrides take precedence.
type Request struct {
	DatasetID ident.DatasetID
	TableName string
	PeriodID  ident.PeriodID
	ProjectID *ident.ProjectID

	// Pinned, when set, bypasses the project-override/dataset-reference/
	// system-default precedence chain entirely and resolves against
	// this exact (ResolverID, Version). A Run threads its
	// Snapshot.ResolverSnapshots entry here for every re-resolution
	// performed over its lifetime, so a retry or a later Period in the
	// same Run never picks up a Resolver version activated after the
	// Run began.
	Pinned *model.ResolverSnapshot
}

// Engine resolves requests against a metadata Store.
type Engine struct {
	store Store
}

// New constructs an Engine backed by store.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// Resolve executes the full chain: resolver selection, rule
// evaluation, period expansion, and template rendering. It always
// returns a Diagnostic, even on error, so callers can surface why a
// resolution took the path it did.
func (e *Engine) Resolve(ctx context.Context, req Request) ([]ResolvedLocation, Diagnostic, error) {
	resolverID, source, resv, err := e.selectResolver(ctx, req)
	if err != nil {
		return nil, Diagnostic{}, err
	}
	diag := Diagnostic{ResolverID: resolverID, ResolverSource: source}

	period, err := e.store.GetPeriod(ctx, req.PeriodID)
	if err != nil {
		return nil, diag, err
	}

	rule, evals, err := e.matchRule(req, resv, *period)
	diag.EvaluatedRules = evals
	if err != nil {
		diag.Outcome = OutcomeNoMatchingRule
		return nil, diag, err
	}

	periods, err := e.expandPeriods(ctx, *period, rule.DataLevel)
	if err != nil {
		diag.Outcome = OutcomePeriodExpansionFail
		return nil, diag, err
	}
	diag.ExpandedPeriods = periods

	locations := make([]ResolvedLocation, 0, len(periods))
	for _, p := range periods {
		loc, err := renderLocation(rule, p, req.TableName, resolverID)
		if err != nil {
			diag.Outcome = OutcomeTemplateRenderFail
			return nil, diag, err
		}
		locations = append(locations, loc)
	}

	diag.Outcome = OutcomeSuccess
	log.WithFields(log.Fields{
		"dataset_id":  req.DatasetID.String(),
		"resolver_id": resolverID.String(),
		"rule_name":   rule.Name,
		"locations":   len(locations),
	}).Debug("resolver: resolved")
	return locations, diag, nil
}

// SelectResolverForDataset runs the precedence chain (project override,
// dataset reference, system default) for datasetID without requiring a
// TableName or PeriodID, for callers that need only the (ResolverID,
// Resolver) pair it currently resolves to -- pinning
// Snapshot.ResolverSnapshots at Run creation, and activation's own
// dry-run checks.
func (e *Engine) SelectResolverForDataset(ctx context.Context, datasetID ident.DatasetID, projectID *ident.ProjectID) (ident.ResolverID, ResolverSource, *model.Resolver, error) {
	return e.selectResolver(ctx, Request{DatasetID: datasetID, ProjectID: projectID})
}

// selectResolver applies the precedence chain: pinned snapshot, project
// override, dataset reference, system default.
func (e *Engine) selectResolver(ctx context.Context, req Request) (ident.ResolverID, ResolverSource, *model.Resolver, error) {
	if req.Pinned != nil {
		resv, err := e.store.GetResolver(ctx, req.Pinned.ResolverID, &req.Pinned.Version)
		if err != nil {
			return ident.ResolverID{}, "", nil, err
		}
		return req.Pinned.ResolverID, SourcePinnedSnapshot, resv, nil
	}

	if req.ProjectID != nil {
		proj, err := e.store.GetProject(ctx, *req.ProjectID, nil)
		if err == nil && proj != nil {
			if id, ok := proj.ResolverOverrides[req.DatasetID]; ok {
				resv, err := e.store.GetResolver(ctx, id, nil)
				if err == nil {
					return id, SourceProjectOverride, resv, nil
				}
			}
		}
	}

	dataset, err := e.store.GetDataset(ctx, req.DatasetID, nil)
	if err == nil && dataset != nil && dataset.ResolverID != nil {
		resv, err := e.store.GetResolver(ctx, *dataset.ResolverID, nil)
		if err == nil {
			return *dataset.ResolverID, SourceDatasetReference, resv, nil
		}
	}

	resv, err := e.store.GetDefaultResolver(ctx)
	if err != nil || resv == nil {
		return ident.ResolverID{}, "", nil, &NotFoundError{DatasetID: req.DatasetID.String()}
	}
	return resv.ID, SourceSystemDefault, resv, nil
}

func (e *Engine) matchRule(req Request, resolverObj *model.Resolver, period model.Period) (*model.ResolutionRule, []RuleEvaluation, error) {
	rctx := cond.Context{
		"identifier": cond.StringLit(string(period.ID)),
		"level":      cond.StringLit(period.Level),
		"start_date": cond.DateLit(period.StartDate),
		"end_date":   cond.DateLit(period.EndDate),
		"table_name": cond.StringLit(req.TableName),
		"dataset_id": cond.StringLit(req.DatasetID.String()),
	}

	var evals []RuleEvaluation
	for i := range resolverObj.Rules {
		rule := &resolverObj.Rules[i]
		if rule.When == "" {
			evals = append(evals, RuleEvaluation{RuleName: rule.Name, Matched: true, Reason: "unconditional"})
			return rule, evals, nil
		}
		expr, err := cond.Parse(rule.When)
		if err != nil {
			evals = append(evals, RuleEvaluation{RuleName: rule.Name, Matched: false, Reason: err.Error(), EvaluatedExpression: rule.When})
			continue
		}
		matched, err := cond.Eval(expr, rctx)
		if err != nil {
			evals = append(evals, RuleEvaluation{RuleName: rule.Name, Matched: false, Reason: err.Error(), EvaluatedExpression: rule.When})
			continue
		}
		evals = append(evals, RuleEvaluation{RuleName: rule.Name, Matched: matched, EvaluatedExpression: rule.When, Reason: ifMatchedReason(matched)})
		if matched {
			return rule, evals, nil
		}
	}
	return nil, evals, &NoMatchingRuleError{ResolverID: resolverObj.ID.String()}
}

func ifMatchedReason(matched bool) string {
	if matched {
		return "matched"
	}
	return "condition evaluated false"
}

// expandPeriods implements the period-expansion rule: data_level "any"
// or equal to the requested period's own level needs no expansion; a
// finer data_level requires a downward Calendar-hierarchy walk
// collecting every descendant at that level inside
// [start_date, end_date].
func (e *Engine) expandPeriods(ctx context.Context, period model.Period, dataLevel string) ([]model.Period, error) {
	if dataLevel == model.DataLevelAny || dataLevel == period.Level {
		return []model.Period{period}, nil
	}

	frontier := []model.Period{period}
	for {
		var next []model.Period
		for _, p := range frontier {
			children, err := e.store.ListChildPeriods(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			next = append(next, children...)
		}
		if len(next) == 0 {
			return nil, &PeriodExpansionError{FromLevel: period.Level, ToLevel: dataLevel}
		}

		var matched []model.Period
		allAtLevel := true
		for _, p := range next {
			if p.Level != dataLevel {
				allAtLevel = false
				continue
			}
			if withinRange(p, period) {
				matched = append(matched, p)
			}
		}
		if allAtLevel {
			sort.Slice(matched, func(i, j int) bool {
				if matched[i].Year != matched[j].Year {
					return matched[i].Year < matched[j].Year
				}
				return matched[i].Sequence < matched[j].Sequence
			})
			return matched, nil
		}
		frontier = next
	}
}

func withinRange(p model.Period, bound model.Period) bool {
	return !p.StartDate.Before(bound.StartDate) && !p.EndDate.After(bound.EndDate)
}

func renderLocation(rule *model.ResolutionRule, period model.Period, tableName string, resolverID ident.ResolverID) (ResolvedLocation, error) {
	strat := rule.Strategy
	loc := ResolvedLocation{
		DataSourceID:     strat.DataSourceID,
		PeriodIdentifier: period.ID,
		ResolverID:       resolverID,
		RuleName:         rule.Name,
	}

	switch strat.Kind {
	case model.StrategyPath:
		rendered, err := renderTemplate(strat.Path, period, tableName)
		if err != nil {
			return ResolvedLocation{}, err
		}
		loc.Path = rendered
	case model.StrategyTable:
		table, err := renderTemplate(strat.Table, period, tableName)
		if err != nil {
			return ResolvedLocation{}, err
		}
		loc.Table = table
		if strat.Schema != "" {
			schema, err := renderTemplate(strat.Schema, period, tableName)
			if err != nil {
				return ResolvedLocation{}, err
			}
			loc.Schema = schema
		}
	case model.StrategyCatalog:
		loc.CatalogEndpoint = strat.Endpoint
		loc.CatalogMethod = strat.Method
		loc.CatalogParams = make(map[string]string, len(strat.Params))
		for k, v := range strat.Params {
			rendered, err := renderTemplate(v, period, tableName)
			if err != nil {
				return ResolvedLocation{}, err
			}
			loc.CatalogParams[k] = rendered
		}
		loc.CatalogHeaders = make(map[string]string, len(strat.Headers))
		for k, v := range strat.Headers {
			rendered, err := renderTemplate(v, period, tableName)
			if err != nil {
				return ResolvedLocation{}, err
			}
			loc.CatalogHeaders[k] = rendered
		}
	}
	return loc, nil
}
