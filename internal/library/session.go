package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/petitpdf/internal/detail"
	"github.com/hyperjump/petitpdf/internal/models"
	"go.uber.org/zap"
)

// OpenDetail starts a viewing session on document id. A session already open on any
// document is closed and written back first.
func (l *Library) OpenDetail(ctx context.Context, id string) (*detail.Controller, error) {
	l.mu.Lock()
	prev, hadPrev := l.detail.Dismiss()
	l.mu.Unlock()
	if hadPrev {
		if _, err := l.writeBack(ctx, prev); err != nil {
			l.logger.Warn("previous session write-back failed", zap.String("document_id", prev.DocumentID()), zap.Error(err))
		}
	}

	doc, err := l.storage.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	opts := []detail.Option{
		detail.WithLogger(l.logger),
		detail.WithClock(l.now),
		detail.WithMergeRemote(l.mergeRemote),
		detail.WithOnChange(func(s detail.State) {
			l.events.publish(Event{Type: EventSessionChanged, DocumentID: s.Document.ID, State: &s})
		}),
	}

	l.mu.Lock()
	raced, hadRaced := l.detail.Dismiss()
	ctrl := l.detail.PresentFunc(context.Background(), func(ctx context.Context) *detail.Controller {
		return detail.New(ctx, doc, l.syncer, opts...)
	})
	l.mu.Unlock()
	if hadRaced {
		if _, err := l.writeBack(ctx, raced); err != nil {
			l.logger.Warn("previous session write-back failed", zap.String("document_id", raced.DocumentID()), zap.Error(err))
		}
	}

	l.logger.Info("session opened", zap.String("document_id", doc.ID), zap.String("name", doc.Name))
	if err := ctrl.Open(ctx); err != nil {
		return nil, err
	}
	st := ctrl.Snapshot()
	l.events.publish(Event{Type: EventSessionOpened, DocumentID: doc.ID, State: &st})
	return ctrl, nil
}

// Detail returns the controller of the open session.
func (l *Library) Detail() (*detail.Controller, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.detail.Get()
}

// CloseDetail ends the open session and stores the document's new learning time
// and bookmarks.
func (l *Library) CloseDetail(ctx context.Context) (*models.Document, error) {
	l.mu.Lock()
	ctrl, ok := l.detail.Dismiss()
	l.mu.Unlock()
	if !ok {
		return nil, ErrNoDetail
	}
	return l.writeBack(ctx, ctrl)
}

func (l *Library) writeBack(ctx context.Context, ctrl *detail.Controller) (*models.Document, error) {
	doc, err := ctrl.Close()
	if errors.Is(err, detail.ErrSessionClosed) {
		return ctrl.Document(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := l.storage.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("write back document: %w", err)
	}
	l.events.publish(Event{Type: EventSessionClosed, DocumentID: doc.ID, Document: doc.Clone()})
	return doc, nil
}

// Close ends any open session and the event stream.
func (l *Library) Close(ctx context.Context) error {
	_, err := l.CloseDetail(ctx)
	l.events.close()
	if errors.Is(err, ErrNoDetail) {
		return nil
	}
	return err
}
