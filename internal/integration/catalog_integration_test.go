//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/idempotency"
)

// Seeded products, see db.seedStock.
const (
	lowStockProduct   = 117 // 17 units, LOW_STOCK
	outOfStockProduct = 119
	preOrderProduct   = 115
	inStockProduct    = 113 // 163 units
)

func TestCartIntegration(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pgC, dbURL := startPostgres(ctx, t)
	defer terminateContainer(t, pgC)

	rabbitC, rabbitURL := startRabbitMQ(ctx, t)
	defer terminateContainer(t, rabbitC)

	redisC, redisAddr := startRedis(ctx, t)
	defer terminateContainer(t, redisC)

	require.NoError(t, db.RunMigrations(dbURL, zap.NewNop()))

	app := startCatalogService(ctx, t, dbURL, rabbitURL, redisAddr)
	defer app.stop()

	conn := dialAMQP(ctx, t, rabbitURL)
	defer conn.Close()
	stockQueue := bindQueue(t, conn, events.StockAdjustedRoutingKey)

	client := &http.Client{Timeout: 5 * time.Second}
	const session = "integration-session"

	resp := doJSON(ctx, t, client, http.MethodPost, app.baseURL+"/api/cart", session, "add-1",
		map[string]any{"productId": lowStockProduct, "quantity": 2})
	require.Equal(t, http.StatusCreated, resp.status)

	replayed := doJSON(ctx, t, client, http.MethodPost, app.baseURL+"/api/cart", session, "add-1",
		map[string]any{"productId": lowStockProduct, "quantity": 2})
	require.Equal(t, http.StatusCreated, replayed.status)
	require.Equal(t, "true", replayed.header.Get(idempotency.HeaderReplayed))

	p := getProduct(ctx, t, client, app.baseURL, lowStockProduct)
	require.Equal(t, 15, p.StockQuantity)
	require.Equal(t, "LOW_STOCK", p.StockStatus)

	var env events.EventEnvelope
	waitForMessage(ctx, t, conn, stockQueue, &env)
	require.NoError(t, env.Validate(events.EventTypeStockAdjusted, 1))
	require.Equal(t, "product:117", env.PartitionKey)
	require.Equal(t, int64(1), env.Sequence)
	var adjusted events.StockAdjustedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &adjusted))
	require.Equal(t, -2, adjusted.Delta)
	require.Equal(t, 15, adjusted.StockQuantity)

	resp = doJSON(ctx, t, client, http.MethodPost, app.baseURL+"/api/cart", session, "",
		map[string]any{"productId": outOfStockProduct, "quantity": 1})
	require.Equal(t, http.StatusBadRequest, resp.status)
	require.Equal(t, "PRODUCT_NOT_AVAILABLE", resp.body.Error.Code)

	resp = doJSON(ctx, t, client, http.MethodPost, app.baseURL+"/api/cart", session, "",
		map[string]any{"productId": preOrderProduct, "quantity": 3})
	require.Equal(t, http.StatusCreated, resp.status)
	p = getProduct(ctx, t, client, app.baseURL, preOrderProduct)
	require.Equal(t, 0, p.StockQuantity)
	require.Equal(t, "PRE_ORDER", p.StockStatus)

	resp = doJSON(ctx, t, client, http.MethodPut, fmt.Sprintf("%s/api/cart/%d", app.baseURL, lowStockProduct), session, "",
		map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, resp.status)
	require.Equal(t, 12, getProduct(ctx, t, client, app.baseURL, lowStockProduct).StockQuantity)

	resp = doJSON(ctx, t, client, http.MethodGet, app.baseURL+"/api/cart/total", session, "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	var total struct {
		Total     float64 `json:"total"`
		ItemCount int     `json:"itemCount"`
	}
	require.NoError(t, json.Unmarshal(resp.body.Data, &total))
	require.Equal(t, 8, total.ItemCount)

	resp = doJSON(ctx, t, client, http.MethodDelete, app.baseURL+"/api/cart", session, "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	require.JSONEq(t, `{"cleared":true}`, string(resp.body.Data))

	p = getProduct(ctx, t, client, app.baseURL, lowStockProduct)
	require.Equal(t, 17, p.StockQuantity)
	require.Equal(t, "LOW_STOCK", p.StockStatus)
	require.Equal(t, 0, getProduct(ctx, t, client, app.baseURL, preOrderProduct).StockQuantity)
}

func TestStockFloorUnderContention(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pgC, dbURL := startPostgres(ctx, t)
	defer terminateContainer(t, pgC)

	require.NoError(t, db.RunMigrations(dbURL, zap.NewNop()))
	pool, err := db.NewPool(ctx, dbURL, 10)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, db.Seed(ctx, pool, zap.NewNop()))

	products := catalog.NewPostgresRepository(pool)
	carts := cart.NewPostgresRepository(pool)
	svc := cart.NewService(carts, products, nil, zap.NewNop())

	// Leave exactly 3 units.
	_, err = products.UpdateStockQuantity(ctx, inStockProduct, -160)
	require.NoError(t, err)

	const shoppers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < shoppers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AddToCart(ctx, fmt.Sprintf("shopper-%d", i), inStockProduct, 1)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 3, succeeded)
	p, err := products.FindByID(ctx, inStockProduct)
	require.NoError(t, err)
	require.Equal(t, 0, p.StockQuantity)
	require.Equal(t, catalog.OutOfStock, p.StockStatus)

	_, err = products.UpdateStockQuantity(ctx, inStockProduct, -1)
	var neg *catalog.NegativeStockError
	require.ErrorAs(t, err, &neg)
	require.Equal(t, 0, neg.Current)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	redisC, redisAddr := startRedis(ctx, t)
	defer terminateContainer(t, redisC)

	rdb := idempotency.NewRedisClient(redisAddr)
	defer rdb.Close()
	store := idempotency.NewRedisStore(rdb)

	key := fmt.Sprintf(idempotency.KeyCartAdd, "s1", "k1")

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	locked, err := store.Lock(ctx, key)
	require.NoError(t, err)
	require.True(t, locked)
	locked, err = store.Lock(ctx, key)
	require.NoError(t, err)
	require.False(t, locked)

	want := idempotency.Response{Status: http.StatusCreated, ContentType: "application/json", Body: []byte(`{"success":true}`)}
	require.NoError(t, store.Save(ctx, key, want, time.Minute))
	require.NoError(t, store.Unlock(ctx, key))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)

	locked, err = store.Lock(ctx, key)
	require.NoError(t, err)
	require.True(t, locked)
}

type catalogApp struct {
	baseURL string
	stop    func()
}

func startCatalogService(ctx context.Context, t *testing.T, dbURL, rabbitURL, redisAddr string) *catalogApp {
	t.Helper()

	pool, err := db.NewPool(ctx, dbURL, 10)
	require.NoError(t, err)
	require.NoError(t, db.Seed(ctx, pool, zap.NewNop()))

	conn := dialAMQP(ctx, t, rabbitURL)
	publisher, err := events.NewRabbitPublisher(conn, events.PublisherOptions{
		Sequencer: events.NewSequenceRepository(pool),
	})
	require.NoError(t, err)

	rdb := idempotency.NewRedisClient(redisAddr)

	products := catalog.NewPostgresRepository(pool)
	catalogSvc := catalog.NewService(products, zap.NewNop())
	cartSvc := cart.NewService(cart.NewPostgresRepository(pool), products, publisher, zap.NewNop())

	handler := httpapi.NewHandler(catalogSvc, cartSvc, zap.NewNop())
	router := httpapi.NewRouter(handler, httpapi.RouterOptions{
		RequestTimeout: 5 * time.Second,
		Idempotency: idempotency.Middleware(
			idempotency.NewRedisStore(rdb),
			time.Hour,
			httpapi.CartAddIdempotencyKey,
			zap.NewNop(),
		),
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return &catalogApp{
		baseURL: fmt.Sprintf("http://%s", ln.Addr().String()),
		stop: func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)

			_ = publisher.Close()
			_ = conn.Close()
			_ = rdb.Close()
			pool.Close()

			select {
			case err := <-errCh:
				t.Logf("server error: %v", err)
			default:
			}
		},
	}
}

type apiResponse struct {
	status int
	header http.Header
	body   struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
}

func doJSON(ctx context.Context, t *testing.T, client *http.Client, method, url, session, idemKey string, payload any) apiResponse {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(httpapi.HeaderSessionID, session)
	}
	if idemKey != "" {
		req.Header.Set(idempotency.HeaderKey, idemKey)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := apiResponse{status: resp.StatusCode, header: resp.Header}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out.body))
	return out
}

func getProduct(ctx context.Context, t *testing.T, client *http.Client, baseURL string, id int64) httpapi.ProductDTO {
	t.Helper()

	resp := doJSON(ctx, t, client, http.MethodGet, fmt.Sprintf("%s/api/products/%d", baseURL, id), "", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	var p httpapi.ProductDTO
	require.NoError(t, json.Unmarshal(resp.body.Data, &p))
	return p
}

func startPostgres(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "catalog"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/catalog?sslmode=disable", host, mappedPort.Port())
	return container, dsn
}

func startRabbitMQ(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-management",
		ExposedPorts: []string{"5672/tcp", "15672/tcp"},
		WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)

	return container, fmt.Sprintf("amqp://guest:guest@%s:%s/", host, mappedPort.Port())
}

func startRedis(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return container, fmt.Sprintf("%s:%s", host, mappedPort.Port())
}

func terminateContainer(t *testing.T, c testcontainers.Container) {
	t.Helper()
	terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Terminate(terminateCtx))
}

// bindQueue declares a private queue bound to the events exchange.
func bindQueue(t *testing.T, conn *amqp.Connection, routingKey string) string {
	t.Helper()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.ExchangeDeclare(events.EventsExchange, "topic", true, false, false, false, nil))
	q, err := ch.QueueDeclare("", false, false, false, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, routingKey, events.EventsExchange, false, nil))
	return q.Name
}

func waitForMessage[T any](ctx context.Context, t *testing.T, conn *amqp.Connection, queue string, dest *T) {
	t.Helper()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	backoff := 50 * time.Millisecond
	for {
		select {
		case <-pollCtx.Done():
			t.Fatalf("timed out waiting for message on %s: %v", queue, pollCtx.Err())
		default:
		}

		msg, ok, getErr := ch.Get(queue, true)
		require.NoError(t, getErr)
		if ok {
			require.NoError(t, json.Unmarshal(msg.Body, dest))
			return
		}

		time.Sleep(backoff)
		if backoff < time.Second {
			backoff *= 2
		}
	}
}

func dialAMQP(ctx context.Context, t *testing.T, rabbitURL string) *amqp.Connection {
	t.Helper()
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, err := amqp.DialConfig(rabbitURL, amqp.Config{
		Dial: func(network, addr string) (net.Conn, error) {
			return (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 5 * time.Second,
			}).DialContext(dialCtx, network, addr)
		},
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	require.NoError(t, err)
	return conn
}
