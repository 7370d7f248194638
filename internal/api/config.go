package api

type Config struct {
	Addr   string // listen address for the HTTP/websocket server
	DBPath string // sqlite database file

	// Per-subscriber outbound frame queue. A subscriber that falls this far
	// behind is disconnected rather than allowed to stall the relay.
	SubscriberBuffer int
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8787"
	}
	if c.DBPath == "" {
		c.DBPath = "coincast.db"
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = 256
	}
	return c
}
