package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// Default service ports.
const (
	DefaultAirTunesPort = 5000
	DefaultAirPlayPort  = 7000
)

// MDNSServer is the interface for mDNS service registration.
// This allows for dependency injection in tests.
type MDNSServer interface {
	// Shutdown stops the server.
	Shutdown()
}

// MDNSServerFactory creates MDNSServer instances.
type MDNSServerFactory interface {
	// Register creates a new mDNS server for the given service.
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

// zeroconfServerFactory is the production implementation using grandcat/zeroconf.
type zeroconfServerFactory struct{}

func (z *zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// activeService tracks an active DNS-SD service registration.
type activeService struct {
	server       MDNSServer
	serviceType  ServiceType
	instanceName string
}

// AdvertiserConfig holds configuration for the Advertiser.
type AdvertiserConfig struct {
	// Interfaces specifies which network interfaces to advertise on.
	// If nil, all interfaces are used.
	Interfaces []net.Interface

	// ServerFactory is the factory for creating mDNS servers.
	// If nil, the default zeroconf factory is used.
	ServerFactory MDNSServerFactory

	// LoggerFactory for creating loggers.
	LoggerFactory logging.LoggerFactory
}

// Advertiser publishes the receiver's DNS-SD services.
type Advertiser struct {
	config   AdvertiserConfig
	factory  MDNSServerFactory
	log      logging.LeveledLogger
	mu       sync.RWMutex
	services map[ServiceType]*activeService
	closed   bool
}

// NewAdvertiser creates a new Advertiser with the given configuration.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	factory := config.ServerFactory
	if factory == nil {
		factory = &zeroconfServerFactory{}
	}

	a := &Advertiser{
		config:   config,
		factory:  factory,
		services: make(map[ServiceType]*activeService),
	}

	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("discovery")
	}

	return a
}

// Publish advertises the receiver as "<device id hex>@<name>._raop._tcp" and
// "<name>._airplay._tcp". The TXT description is validated before any
// registration is attempted. If the second registration fails, the first is
// withdrawn.
func (a *Advertiser) Publish(txt ReceiverTXT) error {
	txt = txt.WithDefaults()
	if txt.AirTunesPort == 0 {
		txt.AirTunesPort = DefaultAirTunesPort
	}
	if txt.AirPlayPort == 0 {
		txt.AirPlayPort = DefaultAirPlayPort
	}
	if err := txt.Validate(); err != nil {
		return fmt.Errorf("advertiser: receiver txt validation failed: %w", err)
	}
	if txt.PairingID == "" {
		txt.PairingID = uuid.NewString()
	}

	airTunesInstance, err := AirTunesInstanceName(txt.DeviceID, txt.Name)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if len(a.services) > 0 {
		return ErrAlreadyStarted
	}

	airTunes, err := a.register(ServiceTypeAirTunes, airTunesInstance, txt.AirTunesPort, txt.EncodeAirTunes())
	if err != nil {
		return err
	}

	airPlay, err := a.register(ServiceTypeAirPlay, txt.Name, txt.AirPlayPort, txt.EncodeAirPlay())
	if err != nil {
		airTunes.server.Shutdown()
		return err
	}

	a.services[ServiceTypeAirTunes] = airTunes
	a.services[ServiceTypeAirPlay] = airPlay
	return nil
}

func (a *Advertiser) register(serviceType ServiceType, instance string, port int, txt []string) (*activeService, error) {
	service := serviceType.ServiceString()
	if a.log != nil {
		a.log.Debugf("Registering mDNS service: instance=%s service=%s domain=%s port=%d",
			instance, service, DefaultDomain, port)
		a.log.Tracef("TXT records: %v", txt)
	}

	server, err := a.factory.Register(instance, service, DefaultDomain, port, txt, a.config.Interfaces)
	if err != nil {
		return nil, fmt.Errorf("advertiser: mDNS registration failed for %s: %w", service, err)
	}

	if a.log != nil {
		a.log.Infof("mDNS registration successful for %s.%s", instance, service)
	}

	return &activeService{
		server:       server,
		serviceType:  serviceType,
		instanceName: instance,
	}, nil
}

// Stop stops advertising a specific service type.
func (a *Advertiser) Stop(serviceType ServiceType) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	svc, exists := a.services[serviceType]
	if !exists {
		return ErrNotStarted
	}

	svc.server.Shutdown()
	delete(a.services, serviceType)

	return nil
}

// StopAll stops all active service advertisements.
func (a *Advertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, svc := range a.services {
		svc.server.Shutdown()
	}
	a.services = make(map[ServiceType]*activeService)
}

// Close stops all services and closes the advertiser.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	for _, svc := range a.services {
		svc.server.Shutdown()
	}
	a.services = nil
	a.closed = true

	return nil
}

// IsAdvertising returns true if the given service type is currently being advertised.
func (a *Advertiser) IsAdvertising(serviceType ServiceType) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.services[serviceType]
	return exists
}

// GetInstanceName returns the instance name for an active service.
// Returns empty string if the service is not active.
func (a *Advertiser) GetInstanceName(serviceType ServiceType) string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if svc, exists := a.services[serviceType]; exists {
		return svc.instanceName
	}
	return ""
}

// CloseOnDone closes the advertiser once ctx is done. It returns a function
// that detaches the advertiser from ctx.
func (a *Advertiser) CloseOnDone(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() { a.Close() })
}
