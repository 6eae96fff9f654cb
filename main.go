package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ocpp "github.com/lorenzodonini/ocpp-go/ocpp1.6"
	ocpp2 "github.com/lorenzodonini/ocpp-go/ocpp2.0.1"
	"github.com/lorenzodonini/ocpp-go/ocppj"
	"github.com/lorenzodonini/ocpp-go/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"charge_point/actions"
	"charge_point/api"
	"charge_point/auth"
	"charge_point/chargepoint"
	"charge_point/common"
	"charge_point/configuration"
	"charge_point/connector"
	"charge_point/firmware"
	"charge_point/hardware"
	"charge_point/history"
	mqttindicator "charge_point/indicator/mqtt"
	"charge_point/metrics"
	notifier "charge_point/notifier/nats"
	"charge_point/ocpp16"
	"charge_point/ocpp201"
	"charge_point/scheduler"
	"charge_point/settings"
	"charge_point/store"
)

const (
	CHARGING_REQUEST       = "charging.request"
	CONNECTORS_STATUS      = "connectors.status"
	CHANGE_AVAILABILITY    = "change.availability"
	UNLOCK_CONNECTOR       = "unlock.connector"
	RESET                  = "reset"
	GET_CONFIGURATION      = "get.configuration"
	CHANGE_CONFIGURATION   = "change.configuration"
	GET_LOCAL_LIST_VERSION = "get.local.list.version"
	CLEAR_CACHE            = "clear.cache"
	RESERVE_NOW            = "reserve.now"
	CANCEL_RESERVATION     = "cancel.reservation"

	readingsInterval = 5 * time.Second
	shutdownTimeout  = 30 * time.Second
)

var log *logrus.Logger

func newProtocol(s *settings.Settings, entry *logrus.Entry) chargepoint.Protocol {
	wsClient := ws.NewClient()
	if s.Server.Username != "" {
		wsClient.SetBasicAuth(s.Server.Username, s.Server.Password)
	}
	id := s.ChargePoint.ID
	if s.ChargePoint.ProtocolVersion == settings.ProtocolV201 {
		adapter := ocpp201.New(id, ocpp2.NewChargingStation(id, nil, wsClient), entry)
		adapter.PersistSequences(s.Files.TransactionSequences)
		return adapter
	}
	return ocpp16.New(id, ocpp.NewChargePoint(id, nil, wsClient), entry)
}

func configurationDefaults(version string, connectors int) map[string]configuration.Variable {
	if version == settings.ProtocolV201 {
		return configuration.V201Defaults()
	}
	return configuration.V16Defaults(connectors)
}

func openStore(s *settings.Settings) (store.Store, *store.FileStore, func(), error) {
	fileStore, err := store.OpenFile(s.Files.Connectors)
	if err != nil {
		return nil, nil, nil, err
	}
	if !s.Redis.Enabled {
		return fileStore, fileStore, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     s.Redis.Address,
		Password: s.Redis.Password,
		DB:       s.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}
	return store.NewRedis(client, s.ChargePoint.ID, fileStore), fileStore, func() { _ = client.Close() }, nil
}

func countConnectors(layout []store.EVSERecord) int {
	n := 0
	for _, evse := range layout {
		n += len(evse.Connectors)
	}
	return n
}

// addConnectors builds the connectors of the layout with software relays and, where a power
// meter is configured, a simulated meter.
func addConnectors(cp *chargepoint.ChargePoint, s *settings.Settings, st store.Store, sched *scheduler.Scheduler, entry *logrus.Entry) {
	for _, evse := range st.Layout() {
		for _, record := range evse.Connectors {
			connectorLog := entry.WithFields(logrus.Fields{"evse": evse.ID, "connector": record.ID})
			relay := hardware.NewSoftRelay(record.Relay.Pin, record.Relay.InverseLogic, connectorLog)
			var meter hardware.PowerMeter
			if record.PowerMeter != nil {
				meter = hardware.NewSimulatedMeter(relay, record.PowerMeter.NominalPower)
			}
			c := connector.New(connector.Config{
				EvseID:            evse.ID,
				ConnectorID:       record.ID,
				Type:              record.Type,
				MaxChargingTime:   s.MaxChargingTime(),
				MinPowerThreshold: s.ChargePoint.MinPowerThreshold,
			}, relay, meter, sched, st, connectorLog)
			if !cp.AddConnector(c) {
				connectorLog.Warn("connector skipped: ids must be contiguous and start at 1")
			}
		}
	}
}

func startNotifier(s *settings.Settings, cp *chargepoint.ChargePoint, entry *logrus.Entry) (func(), error) {
	natsNotifier := notifier.New(s.NATS.URL, s.ChargePoint.ID, entry)
	natsNotifier.SetChannel(cp.NotificationChannel())
	natsNotifier.SetTimeout(s.RequestTimeout())
	log.Printf("waiting up to %v for request replies", natsNotifier.Timeout().String())

	coreActions := actions.InitializeCoreActions(cp)
	localAuthActions := actions.InitializeLocalAuthActions(cp)
	reservationActions := actions.InitializeReservationActions(cp)

	natsNotifier.AddHandler(CHARGING_REQUEST, coreActions.ChargingRequest)
	natsNotifier.AddHandler(CONNECTORS_STATUS, coreActions.ConnectorsStatus)
	natsNotifier.AddHandler(CHANGE_AVAILABILITY, coreActions.ChangeAvailability)
	natsNotifier.AddHandler(UNLOCK_CONNECTOR, coreActions.UnlockConnector)
	natsNotifier.AddHandler(RESET, coreActions.Reset)
	natsNotifier.AddHandler(GET_CONFIGURATION, coreActions.GetConfiguration)
	natsNotifier.AddHandler(CHANGE_CONFIGURATION, coreActions.ChangeConfiguration)
	natsNotifier.AddHandler(GET_LOCAL_LIST_VERSION, localAuthActions.GetLocalListVersion)
	natsNotifier.AddHandler(CLEAR_CACHE, localAuthActions.ClearCache)
	natsNotifier.AddHandler(RESERVE_NOW, reservationActions.ReserveNow)
	natsNotifier.AddHandler(CANCEL_RESERVATION, reservationActions.CancelReservation)

	if err := natsNotifier.Start(); err != nil {
		return nil, err
	}
	return natsNotifier.Stop, nil
}

func startHTTP(s *settings.Settings, cp *chargepoint.ChargePoint, registry *prometheus.Registry) *http.Server {
	handler := api.NewServer(cp, cp.Protocol().IsConnected, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: s.HTTP.Address, Handler: handler.Routes(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infof("serving http on %v", s.HTTP.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server: %v", err)
		}
	}()
	return server
}

// Start function
func main() {
	settingsPath := flag.String("settings", "settings.ini", "path of the charge point settings file")
	flag.Parse()

	s, err := settings.Load(*settingsPath)
	if err != nil {
		log.Fatal(err)
	}
	if level, err := logrus.ParseLevel(s.ChargePoint.LogLevel); err == nil {
		log.SetLevel(level)
	}
	entry := log.WithField("client", s.ChargePoint.ID)

	ocppj.SetLogger(log)
	ws.SetLogger(log)

	protocol := newProtocol(s, entry)

	st, fileStore, closeStore, err := openStore(s)
	if err != nil {
		log.Fatalf("couldn't open connector store: %v", err)
	}
	defer closeStore()

	config, err := configuration.Open(s.Files.Configuration,
		configurationDefaults(protocol.Version(), countConnectors(fileStore.Layout())), entry)
	if err != nil {
		log.Fatalf("couldn't open configuration: %v", err)
	}
	cache, err := auth.Open(s.Files.AuthorizationCache, config.Int(protocol.Keys().LocalAuthListMaxLength, 0), entry)
	if err != nil {
		log.Fatalf("couldn't open authorization cache: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indicators := hardware.Indicators{hardware.NewLogIndicator(entry)}
	var mqtt *mqttindicator.Indicator
	if s.MQTT.Enabled {
		mqtt, err = mqttindicator.Connect(s.MQTT.Host, s.MQTT.Port, s.MQTT.Username, s.MQTT.Password, s.ChargePoint.ID, entry)
		if err != nil {
			log.Errorf("mqtt indicator disabled: %v", err)
		} else {
			indicators = append(indicators, mqtt)
			defer mqtt.Close()
		}
	}

	var cp *chargepoint.ChargePoint
	states := func() []chargepoint.ConnectorState { return cp.ConnectorStates() }
	collector := metrics.NewCollector(s.ChargePoint.ID, states)
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector, collectors.NewGoCollector())

	var recorder chargepoint.SessionRecorder
	if s.Database.URL != "" {
		pool, err := history.Connect(ctx, s.Database.URL)
		if err != nil {
			log.Fatalf("couldn't open session history: %v", err)
		}
		defer pool.Close()
		sessions := history.NewSessionsRepo(pool)
		if err := sessions.Migrate(ctx); err != nil {
			log.Errorf("session history schema: %v", err)
		}
		recorder = sessions
	}

	sched := scheduler.New(entry)
	restarts := &restarter{stop: stop}
	cp, err = chargepoint.New(chargepoint.Options{
		ID:        s.ChargePoint.ID,
		Vendor:    s.ChargePoint.Vendor,
		Model:     s.ChargePoint.Model,
		Protocol:  protocol,
		Config:    config,
		Cache:     cache,
		Store:     st,
		Scheduler: sched,
		Indicator: indicators,
		Observer:  collector,
		Recorder:  recorder,
		Updater:   firmware.NewHTTPUpdater(s.Files.UpdatesDir, installFirmware, entry),
		Restart:   restarts.Restart,
		Log:       entry,
	})
	if err != nil {
		log.Fatal(err)
	}
	addConnectors(cp, s, st, sched, entry)

	if s.NATS.Enabled {
		stopNotifier, err := startNotifier(s, cp, entry)
		if err != nil {
			log.Errorf("nats notifier disabled: %v", err)
		} else {
			defer stopNotifier()
		}
	}
	if mqtt != nil {
		go mqtt.Run(ctx, readingsInterval, states)
	}
	if s.HTTP.Enabled {
		server := startHTTP(s, cp, registry)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	log.Infof("connecting to central system at %v using OCPP %v", s.Server.URL, protocol.Version())
	if err := protocol.Start(s.Server.URL, cp); err != nil {
		log.Fatalf("couldn't connect to central system: %v", err)
	}
	defer protocol.Stop()

	if err := cp.Boot(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("boot failed: %v", err)
	}

	<-ctx.Done()
	if requested, hard := restarts.pending(); requested {
		// the reset job has already cleaned up
		log.Infof("restarting (hard=%v)", hard)
		if err := reboot(hard); err != nil {
			log.Fatalf("restart: %v", err)
		}
		return
	}

	log.Info("shutting down")
	cleanupCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := cp.Cleanup(cleanupCtx, common.StopReasonLocal); err != nil {
		log.Warnf("cleanup: %v", err)
	}
}

func init() {
	log = logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	// Set this to DebugLevel if you want to retrieve verbose logs from the ocppj and websocket layers
	log.SetLevel(logrus.InfoLevel)
}
