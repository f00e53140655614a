package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/keepat/api/internal/apperr"
	"github.com/keepat/api/internal/models"
	"github.com/keepat/api/internal/queue"
	"github.com/keepat/api/internal/store"
)

// ConversionQueue is the slice of the queue client the redirect service uses.
type ConversionQueue interface {
	Enqueue(ctx context.Context, queue string, job models.ConversionJob) (models.ConversionJob, error)
	Job(ctx context.Context, queue, id string) (models.ConversionJob, error)
}

// RedirectService manages redirects and keeps the normalized hostsource rows
// consistent with the hostSources view exposed to callers. The store has no
// multi-row transactions, so every multi-row change is a sequence of
// single-row operations whose ordering is the only consistency guarantee.
type RedirectService struct {
	store store.Store
	queue ConversionQueue
}

// NewRedirectService constructs a RedirectService.
func NewRedirectService(st store.Store, q ConversionQueue) *RedirectService {
	return &RedirectService{store: st, queue: q}
}

// RedirectParams are the caller-supplied redirect fields.
type RedirectParams struct {
	TargetHost     string
	TargetProtocol string
	HostSources    []string
}

// GetHostSources returns the hostnames bound to a redirect, in store-returned
// order.
func (s *RedirectService) GetHostSources(ctx context.Context, applicationID, redirectID string) ([]string, error) {
	items, err := s.store.Query(ctx, store.TableHostSource, store.Keys{
		"applicationId": applicationID,
		"redirectId":    redirectID,
	}, store.IndexApplicationRedirect)
	if err != nil {
		return nil, err
	}

	hostSources := make([]string, 0, len(items))
	for _, item := range items {
		if host, ok := item["hostsource"].(string); ok {
			hostSources = append(hostSources, host)
		}
	}
	return hostSources, nil
}

// CreateHostSources inserts one hostsource row per hostname. The inserts are
// issued concurrently and awaited together; a failing insert aborts the group
// and can leave a partially-inserted set behind. A hostname already bound to
// another redirect is silently rebound, since the hostname is the sole
// primary key.
func (s *RedirectService) CreateHostSources(ctx context.Context, applicationID, redirectID string, hostSources []string) ([]string, error) {
	if len(hostSources) == 0 {
		return nil, apperr.Validation("SourceHostsMustBeInformed", "Source hosts must be informed.")
	}
	log.Infof("redirect createHostSources app %s redirect %s hosts %d", applicationID, redirectID, len(hostSources))

	g, ctx := errgroup.WithContext(ctx)
	for _, host := range hostSources {
		host := host
		g.Go(func() error {
			_, err := s.store.Insert(ctx, store.TableHostSource, map[string]any{
				"hostsource":    host,
				"applicationId": applicationID,
				"redirectId":    redirectID,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Warnf("redirect createHostSources app %s redirect %s: %v", applicationID, redirectID, err)
		return nil, err
	}
	return hostSources, nil
}

// DeleteHostSources removes every hostsource row of a redirect. Rows are
// deleted by hostname alone, the table's primary key; ownership is
// established by the preceding query.
func (s *RedirectService) DeleteHostSources(ctx context.Context, applicationID, redirectID string) error {
	hostSources, err := s.GetHostSources(ctx, applicationID, redirectID)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, host := range hostSources {
		host := host
		g.Go(func() error {
			return s.store.Delete(ctx, store.TableHostSource, store.Keys{"hostsource": host})
		})
	}
	if err := g.Wait(); err != nil {
		log.Warnf("redirect deleteHostSources app %s redirect %s: %v", applicationID, redirectID, err)
		return err
	}
	return nil
}

// UpdateHostSources replaces a redirect's host sources wholesale: delete all
// current rows, then insert the new set. The two phases are not atomic; a
// failure in between leaves the redirect with zero host sources.
func (s *RedirectService) UpdateHostSources(ctx context.Context, applicationID, redirectID string, hostSources []string) ([]string, error) {
	if err := s.DeleteHostSources(ctx, applicationID, redirectID); err != nil {
		return nil, err
	}
	return s.CreateHostSources(ctx, applicationID, redirectID, hostSources)
}

// Create inserts the redirect row under a fresh id, then binds its host
// sources.
func (s *RedirectService) Create(ctx context.Context, applicationID string, params RedirectParams) (models.Redirect, error) {
	redirectID := uuid.NewString()
	log.Infof("redirect create app %s id %s", applicationID, redirectID)

	item, err := s.store.Insert(ctx, store.TableRedirect, map[string]any{
		"id":             redirectID,
		"applicationId":  applicationID,
		"targetHost":     params.TargetHost,
		"targetProtocol": params.TargetProtocol,
	})
	if err != nil {
		return models.Redirect{}, err
	}

	hostSources, err := s.CreateHostSources(ctx, applicationID, redirectID, params.HostSources)
	if err != nil {
		return models.Redirect{}, err
	}

	redirect, err := redirectFromItem(item)
	if err != nil {
		return models.Redirect{}, err
	}
	redirect.HostSources = hostSources
	return redirect, nil
}

// Get fetches one redirect with its host sources attached.
func (s *RedirectService) Get(ctx context.Context, applicationID, redirectID string) (models.Redirect, error) {
	item, err := s.store.Get(ctx, store.TableRedirect, store.Keys{
		"applicationId": applicationID,
		"id":            redirectID,
	})
	if err != nil {
		return models.Redirect{}, err
	}
	if item == nil {
		return models.Redirect{}, apperr.NotFound("RedirectNotFound", "Redirect does not exist.")
	}

	redirect, err := redirectFromItem(item)
	if err != nil {
		return models.Redirect{}, err
	}
	redirect.HostSources, err = s.GetHostSources(ctx, applicationID, redirectID)
	if err != nil {
		return models.Redirect{}, err
	}
	return redirect, nil
}

// Update rewrites the redirect's scalar fields and replaces its host sources,
// composing the merged result.
func (s *RedirectService) Update(ctx context.Context, applicationID, redirectID string, params RedirectParams) (models.Redirect, error) {
	log.Infof("redirect update app %s id %s", applicationID, redirectID)

	if _, err := s.store.Update(ctx, store.TableRedirect, store.Keys{
		"applicationId": applicationID,
		"id":            redirectID,
	}, map[string]any{
		"targetHost":     params.TargetHost,
		"targetProtocol": params.TargetProtocol,
	}); err != nil {
		return models.Redirect{}, err
	}

	hostSources, err := s.UpdateHostSources(ctx, applicationID, redirectID, params.HostSources)
	if err != nil {
		return models.Redirect{}, err
	}

	return models.Redirect{
		ID:             redirectID,
		ApplicationID:  applicationID,
		TargetHost:     params.TargetHost,
		TargetProtocol: params.TargetProtocol,
		HostSources:    hostSources,
	}, nil
}

// Delete removes the redirect row, then cascades to its hostsource rows.
func (s *RedirectService) Delete(ctx context.Context, applicationID, redirectID string) error {
	log.Infof("redirect delete app %s id %s", applicationID, redirectID)

	hostSources, err := s.GetHostSources(ctx, applicationID, redirectID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, store.TableRedirect, store.Keys{
		"applicationId": applicationID,
		"id":            redirectID,
	}); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, host := range hostSources {
		host := host
		g.Go(func() error {
			return s.store.Delete(ctx, store.TableHostSource, store.Keys{"hostsource": host})
		})
	}
	return g.Wait()
}

// GetByApplicationID lists an application's redirects, fanning out one
// host-source query per redirect and zipping the results back in input order.
func (s *RedirectService) GetByApplicationID(ctx context.Context, applicationID string) ([]models.Redirect, error) {
	items, err := s.store.Query(ctx, store.TableRedirect, store.Keys{"applicationId": applicationID}, "")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []models.Redirect{}, nil
	}

	redirects := make([]models.Redirect, len(items))
	for i, item := range items {
		redirects[i], err = redirectFromItem(item)
		if err != nil {
			return nil, err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range redirects {
		i := i
		g.Go(func() error {
			hostSources, err := s.GetHostSources(ctx, applicationID, redirects[i].ID)
			if err != nil {
				return err
			}
			redirects[i].HostSources = hostSources
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return redirects, nil
}

// EnqueueConversion queues a from/to mapping file for asynchronous
// conversion.
func (s *RedirectService) EnqueueConversion(ctx context.Context, applicationID, redirectID, file string) (models.ConversionJob, error) {
	if s.queue == nil {
		return models.ConversionJob{}, fmt.Errorf("service: conversion queue not configured")
	}
	log.Infof("redirect enqueueConversion app %s id %s", applicationID, redirectID)

	return s.queue.Enqueue(ctx, queue.FileConverterQueue, models.ConversionJob{
		ApplicationID: applicationID,
		RedirectID:    redirectID,
		File:          file,
	})
}

// ConversionJob returns the state of a queued conversion, refusing jobs that
// belong to another redirect.
func (s *RedirectService) ConversionJob(ctx context.Context, queueName, applicationID, redirectID, jobID string) (models.ConversionJob, error) {
	if s.queue == nil {
		return models.ConversionJob{}, fmt.Errorf("service: conversion queue not configured")
	}

	job, err := s.queue.Job(ctx, queueName, jobID)
	if err != nil {
		return models.ConversionJob{}, err
	}
	if job.ApplicationID != applicationID || job.RedirectID != redirectID {
		return models.ConversionJob{}, apperr.NotFound("JobNotFound", "Job does not exist.")
	}
	return job, nil
}

func redirectFromItem(item map[string]any) (models.Redirect, error) {
	var redirect models.Redirect
	if err := models.FromItem(item, &redirect); err != nil {
		return models.Redirect{}, fmt.Errorf("service: decode redirect: %w", err)
	}
	return redirect, nil
}
