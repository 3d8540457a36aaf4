package consul

import (
	"fmt"
	"net"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
)

// Registration describes this instance to the consul agent.
type Registration struct {
	Name string
	Host string
	Port int
	Tags []string
}

func (r Registration) ID() string {
	return r.Name + "-" + net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

func NewClient(addr string) (*consulapi.Client, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating consul client: %w", err)
	}
	return client, nil
}

// RegisterService registers the instance with an HTTP check against /ping and
// returns the service id used for deregistration.
func RegisterService(client *consulapi.Client, r Registration) (string, error) {
	id := r.ID()
	reg := &consulapi.AgentServiceRegistration{
		ID:      id,
		Name:    r.Name,
		Address: r.Host,
		Port:    r.Port,
		Tags:    r.Tags,
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s/ping", net.JoinHostPort(r.Host, strconv.Itoa(r.Port))),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	if err := client.Agent().ServiceRegister(reg); err != nil {
		return "", fmt.Errorf("registering service %s: %w", id, err)
	}
	return id, nil
}

func DeregisterService(client *consulapi.Client, id string) error {
	if err := client.Agent().ServiceDeregister(id); err != nil {
		return fmt.Errorf("deregistering service %s: %w", id, err)
	}
	return nil
}
