package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/netwatch-dashboard/internal/domain"
)

// Client держит единственное живое соединение с анализатором.
// Жизненный цикл: connecting -> connected -> disconnected -> connecting ...
// Переподключение вечное, с постоянной паузой — это локальный операторский
// дашборд, которому положено "висеть на проводе", а не отваливаться.
//
// Все колбэки состояния выполняются из одной горутины Run, поэтому кадры
// применяются строго в порядке прихода: кадр N полностью применен до кадра N+1.
type Client struct {
	url      string
	delay    time.Duration
	state    *TelemetryState
	metrics  *Metrics
	logger   *zap.Logger
	onUpdate func(domain.Snapshot)
	dialer   *websocket.Dialer

	// Ограничитель на WARN о битых кадрах: мусорный поток не должен зафлудить лог
	dropLog *rate.Limiter
}

// NewClient собирает клиента. onUpdate может быть nil, если push-подписчиков нет:
// состояние в любом случае доступно через TelemetryState.Snapshot().
func NewClient(
	url string,
	reconnectDelay time.Duration,
	state *TelemetryState,
	metrics *Metrics,
	logger *zap.Logger,
	onUpdate func(domain.Snapshot),
) *Client {
	return &Client{
		url:      url,
		delay:    reconnectDelay,
		state:    state,
		metrics:  metrics,
		logger:   logger.Named("stream-client"),
		onUpdate: onUpdate,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		dropLog:  rate.NewLimiter(rate.Limit(1), 5),
	}
}

// Run крутит цикл подключения до отмены контекста. Отмена — единственный
// способ остановить клиента: сокет закрывается, новых попыток не будет.
func (c *Client) Run(ctx context.Context) error {
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(0), // 0 = без лимита попыток
		// Пауза строго постоянная: ни экспоненты, ни джиттера
		retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
			return c.delay
		}),
	)

	err := r.Do(func() error {
		return c.session(ctx)
	})

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// session проживает одно соединение от дозвона до закрытия сокета.
// Возвращает ошибку всегда: для retry-go конец сессии — повод для новой попытки.
func (c *Client) session(ctx context.Context) error {
	c.state.SetConnecting()
	c.metrics.SetConnState(domain.StateConnecting)
	c.metrics.ConnectAttempts.Inc()
	c.publish(ctx)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Неудачный дозвон проходит обе фазы: error (баннер с причиной),
		// затем disconnected (ожидание следующей попытки).
		c.state.SetTransportError(fmt.Sprintf("analyzer unreachable: %v", err))
		c.metrics.SetConnState(domain.StateError)
		c.publish(ctx)

		c.state.SetDisconnected()
		c.metrics.SetConnState(domain.StateDisconnected)
		c.publish(ctx)

		c.logger.Warn("dial failed, will retry",
			zap.String("url", c.url),
			zap.Duration("delay", c.delay),
			zap.Error(err))
		return err
	}

	c.state.SetConnected()
	c.metrics.SetConnState(domain.StateConnected)
	c.publish(ctx)
	c.logger.Info("connected to analyzer", zap.String("url", c.url))

	// Закрытие сокета по отмене контекста выбивает блокирующий ReadMessage
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				// Остановка по отмене: состояние больше не трогаем
				return ctx.Err()
			}

			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.state.SetTransportError(fmt.Sprintf("connection lost: %v", err))
				c.metrics.SetConnState(domain.StateError)
				c.publish(ctx)
			}

			c.state.SetDisconnected()
			c.metrics.SetConnState(domain.StateDisconnected)
			c.publish(ctx)

			c.logger.Info("analyzer connection closed, will retry",
				zap.Duration("delay", c.delay),
				zap.Error(err))
			return err
		}

		c.handleFrame(ctx, frame)
	}
}

// handleFrame разбирает один входящий кадр. Любой мусор глотается локально:
// битый кадр не меняет ни состояние соединения, ни накопленную телеметрию.
func (c *Client) handleFrame(ctx context.Context, frame []byte) {
	c.metrics.FramesReceived.Inc()

	var env domain.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.dropFrame("dropping undecodable frame", err)
		return
	}

	if env.Type != domain.MessageTypeAnalysis {
		// Служебные кадры (connection_established и прочее) просто пропускаем
		c.metrics.FramesIgnored.Inc()
		c.logger.Debug("ignoring frame", zap.String("type", env.Type))
		return
	}

	var res domain.AnalysisResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		c.dropFrame("dropping malformed analysis frame", err)
		return
	}
	if err := res.Validate(); err != nil {
		c.dropFrame("dropping incomplete analysis frame", err)
		return
	}

	c.state.Apply(&res)
	c.publish(ctx)
}

func (c *Client) dropFrame(msg string, err error) {
	c.metrics.ParseErrors.Inc()
	if c.dropLog.Allow() {
		c.logger.Warn(msg, zap.Error(err))
	}
}

// publish отдает свежий снимок подписчику. После отмены контекста снимки
// не публикуются: никакой поздней доставки в остановленный дашборд.
func (c *Client) publish(ctx context.Context) {
	if c.onUpdate == nil || ctx.Err() != nil {
		return
	}
	c.onUpdate(c.state.Snapshot())
}
