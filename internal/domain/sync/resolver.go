package sync

import (
	"context"
	"errors"
	"time"

	"docsync/internal/domain/document"
)

// Resolver - стратегия разрешения конфликта между локальной и удаленной
// версиями одного документа. Реализации - чистые функции: без побочных
// эффектов, детерминированные при одинаковых входах, без обращения к
// текущему времени. Входные документы - копии, удерживать их безопасно.
type Resolver interface {
	Resolve(ctx context.Context, local, remote document.Document) (document.Document, error)
}

// Проверка соответствия стратегий контракту Resolver
var (
	_ Resolver = LastWriteWins{}
	_ Resolver = ServerWins{}
	_ Resolver = ClientWins{}
	_ Resolver = FieldMerge{}
	_ Resolver = Manual{}
)

// LastWriteWins выбирает версию с более поздним updated_at.
// При точном равенстве побеждает удаленная версия, если не взведен
// флаг PreferLocal.
type LastWriteWins struct {
	PreferLocal bool
}

func (r LastWriteWins) Resolve(_ context.Context, local, remote document.Document) (document.Document, error) {
	if local.UpdatedAt.After(remote.UpdatedAt) {
		return local, nil
	}
	if remote.UpdatedAt.After(local.UpdatedAt) {
		return remote, nil
	}
	if r.PreferLocal {
		return local, nil
	}
	return remote, nil
}

// ServerWins всегда возвращает удаленную версию
type ServerWins struct{}

func (ServerWins) Resolve(_ context.Context, _, remote document.Document) (document.Document, error) {
	return remote, nil
}

// ClientWins всегда возвращает локальную версию
type ClientWins struct{}

func (ClientWins) Resolve(_ context.Context, local, _ document.Document) (document.Document, error) {
	return local, nil
}

// FieldMerge сливает документы пополево: для каждого поля берется значение
// той стороны, чья пополевая отметка времени новее. Поля, не отслеженные
// ни одной стороной, берутся из удаленной версии. Результат несет
// объединенную карту пополевых отметок.
type FieldMerge struct{}

func (FieldMerge) Resolve(_ context.Context, local, remote document.Document) (document.Document, error) {
	merged := remote.Clone()
	merged.Fields = make(document.Fields)
	merged.FieldTimes = make(map[string]time.Time)

	names := make(map[string]struct{}, len(local.Fields)+len(remote.Fields))
	for k := range local.Fields {
		names[k] = struct{}{}
	}
	for k := range remote.Fields {
		names[k] = struct{}{}
	}

	for name := range names {
		lt := local.FieldTimes[name]
		rt := remote.FieldTimes[name]

		fromLocal := lt.After(rt)
		if lt.IsZero() && rt.IsZero() {
			// Ни одна сторона не отслеживает поле: берем удаленное значение
			fromLocal = false
		}

		var (
			val document.Value
			ok  bool
		)
		if fromLocal {
			val, ok = local.Fields[name]
			if !ok {
				val, ok = remote.Fields[name]
			}
		} else {
			val, ok = remote.Fields[name]
			if !ok {
				val, ok = local.Fields[name]
			}
		}
		if ok {
			merged.Fields[name] = val.Clone()
		}

		switch {
		case lt.After(rt):
			merged.FieldTimes[name] = lt
		case !rt.IsZero():
			merged.FieldTimes[name] = rt
		case !lt.IsZero():
			merged.FieldTimes[name] = lt
		}
	}

	if local.UpdatedAt.After(remote.UpdatedAt) {
		merged.UpdatedAt = local.UpdatedAt
		merged.IsDeleted = local.IsDeleted
	}
	if local.Version > merged.Version {
		merged.Version = local.Version
	}
	return merged, nil
}

// ManualDecision обратный вызов ручного разрешения: получает обе версии
// и возвращает победителя (например, после показа диалога пользователю)
type ManualDecision func(ctx context.Context, local, remote document.Document) (document.Document, error)

// Manual откладывает решение на сторону вызывающего. Пока решение по
// одному документу не принято, остальные документы того же пулла
// обрабатываются независимо.
type Manual struct {
	Decide ManualDecision
}

func (r Manual) Resolve(ctx context.Context, local, remote document.Document) (document.Document, error) {
	if r.Decide == nil {
		return document.Document{}, errors.New("manual resolver: decision callback is not set")
	}
	return r.Decide(ctx, local, remote)
}

// DefaultResolver возвращает стратегию по умолчанию:
// last-write-wins с победой удаленной версии при равенстве
func DefaultResolver() Resolver {
	return LastWriteWins{}
}
