package form

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"croissants/internal/app/ds"
)

var ErrSubmitInFlight = errors.New("submission already in flight")

// API — удалённый сервис круассанов
type API interface {
	GetBuildings(ctx context.Context) ([]ds.Building, error)
	GetRequests(ctx context.Context) ([]ds.CroissantRequest, error)
	CreateRequest(ctx context.Context, req ds.NewCroissantRequest) (*ds.CroissantRequest, error)
	DeleteRequest(ctx context.Context, id int64) error
}

// SubmitGuard не даёт одной сессии отправить вторую заявку, пока первая в пути
type SubmitGuard interface {
	AcquireSubmit(ctx context.Context, key string) (bool, error)
	ReleaseSubmit(ctx context.Context, key string) error
	SubmitInFlight(ctx context.Context, key string) (bool, error)
}

type Controller struct {
	api   API
	guard SubmitGuard
	now   func() time.Time
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func NewController(api API, guard SubmitGuard, opts ...Option) *Controller {
	c := &Controller{
		api:   api,
		guard: guard,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init — первичная загрузка страницы: здания и заявки запрашиваются параллельно.
// Загрузки пишут в разные поля состояния, порядок завершения не важен
func (c *Controller) Init(ctx context.Context, st *State) error {
	var g errgroup.Group
	g.Go(func() error { return c.LoadBuildings(ctx, st) })
	g.Go(func() error { return c.LoadRequests(ctx, st) })
	return g.Wait()
}

// Refresh — повторный показ страницы. Данные перезагружаются как в Init,
// но выбранное здание сохраняется, если оно осталось в каталоге
func (c *Controller) Refresh(ctx context.Context, st *State) error {
	if !st.Ready() {
		return c.Init(ctx, st)
	}

	var g errgroup.Group
	g.Go(func() error {
		selected := st.CurrentBuilding
		if err := c.LoadBuildings(ctx, st); err != nil {
			return err
		}
		if selected != nil {
			st.SelectBuilding(selected.ID)
		}
		return nil
	})
	g.Go(func() error { return c.LoadRequests(ctx, st) })
	return g.Wait()
}

// LoadBuildings заменяет каталог и выбирает первое здание.
// При ошибке состояние не меняется
func (c *Controller) LoadBuildings(ctx context.Context, st *State) error {
	buildings, err := c.api.GetBuildings(ctx)
	if err != nil {
		logrus.WithField("op", "load_buildings").WithError(err).Error("failed to load buildings")
		st.BuildingsStatus = failed(c.now(), err)
		return err
	}

	st.Buildings = buildings
	if len(buildings) > 0 {
		first := buildings[0]
		st.CurrentBuilding = &first
	}
	st.BuildingsStatus = succeeded(c.now())
	return nil
}

// LoadRequests заменяет список заявок целиком
func (c *Controller) LoadRequests(ctx context.Context, st *State) error {
	requests, err := c.api.GetRequests(ctx)
	if err != nil {
		logrus.WithField("op", "load_requests").WithError(err).Error("failed to load croissant requests")
		st.RequestsStatus = failed(c.now(), err)
		return err
	}

	sortByTimeDesc(requests)
	st.Requests = requests
	now := c.now()
	st.RequestsFetchedAt = now
	st.RequestsStatus = succeeded(now)
	return nil
}

// SubmitInFlight сообщает, ждёт ли сессия ответа на создание заявки
func (c *Controller) SubmitInFlight(ctx context.Context, key string) bool {
	busy, err := c.guard.SubmitInFlight(ctx, key)
	if err != nil {
		logrus.WithFields(logrus.Fields{"op": "submit", "session": key}).WithError(err).Warn("failed to check submit lock")
		return false
	}
	return busy
}

// Submit нормализует этаж и создаёт заявку из черновика.
// После успеха черновик очищается и список перезагружается,
// при ошибке черновик остаётся как был
func (c *Controller) Submit(ctx context.Context, key string, st *State) error {
	log := logrus.WithFields(logrus.Fields{"op": "submit", "session": key})

	acquired, err := c.guard.AcquireSubmit(ctx, key)
	if err != nil {
		err = fmt.Errorf("acquire submit lock: %w", err)
		log.WithError(err).Error("failed to submit croissant request")
		st.SubmitStatus = failed(c.now(), err)
		return err
	}
	if !acquired {
		log.Warn("duplicate submission ignored")
		st.SubmitStatus = failed(c.now(), ErrSubmitInFlight)
		return ErrSubmitInFlight
	}
	defer func() {
		// запрос уже мог быть отменён, снимаем блокировку в любом случае
		if err := c.guard.ReleaseSubmit(context.WithoutCancel(ctx), key); err != nil {
			log.WithError(err).Warn("failed to release submit lock")
		}
	}()

	st.NormalizeFloor()

	created, err := c.api.CreateRequest(ctx, st.newRequest(c.now()))
	if err != nil {
		log.WithError(err).Error("failed to submit croissant request")
		st.SubmitStatus = failed(c.now(), err)
		return err
	}
	log.WithField("request_id", created.ID).Info("croissant request created")

	st.Draft = Draft{}
	st.SubmitStatus = succeeded(c.now())
	_ = c.LoadRequests(ctx, st)
	return nil
}

// DeleteRequest удаляет заявку и перезагружает список.
// При ошибке список остаётся прежним
func (c *Controller) DeleteRequest(ctx context.Context, st *State, id int64) error {
	if err := c.api.DeleteRequest(ctx, id); err != nil {
		logrus.WithFields(logrus.Fields{"op": "delete", "request_id": id}).WithError(err).Error("failed to delete croissant request")
		st.DeleteStatus = failed(c.now(), err)
		return err
	}

	st.DeleteStatus = succeeded(c.now())
	_ = c.LoadRequests(ctx, st)
	return nil
}
