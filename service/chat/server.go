package chat

import (
	"CBProject/module/chat/model"
)

// Options tunes the live-delivery machinery.
type Options struct {
	GatewayID     string
	FanoutWorkers int
	FanoutQueue   int
	SendQueueSize int

	PresenceMirror bool // mirror online state to redis
	RecentCache    bool // mirror newest messages per chat to redis
}

// Server wires the registry, router, pipeline and fan-out around one
// websocket endpoint.
type Server struct {
	gwID          string
	sendQueueSize int

	reg      *Registry
	router   *Router
	fan      *Fanout
	notifier *Notifier
	pipeline *Pipeline
	disp     *Dispatcher

	users model.IUserStore
}

func NewServer(opts Options, users model.IUserStore, chats model.IChatStore, msgs model.IMessageStore, notifs model.INotificationStore) *Server {
	fan := NewFanout(opts.FanoutWorkers, opts.FanoutQueue)
	router := NewRouter(fan)
	reg := NewRegistry(opts.GatewayID)
	if opts.PresenceMirror {
		reg = reg.WithPresenceMirror()
	}
	notifier := NewNotifier(router, notifs)
	pipeline := NewPipeline(reg, router, users, chats, msgs, notifier)
	if opts.RecentCache {
		pipeline = pipeline.WithRecentCache()
	}

	return &Server{
		gwID:          opts.GatewayID,
		sendQueueSize: opts.SendQueueSize,
		reg:           reg,
		router:        router,
		fan:           fan,
		notifier:      notifier,
		pipeline:      pipeline,
		disp:          NewDispatcher(),
		users:         users,
	}
}

func (s *Server) GwID() string        { return s.gwID }
func (s *Server) Reg() *Registry      { return s.reg }
func (s *Server) Router() *Router     { return s.router }
func (s *Server) Pipeline() *Pipeline { return s.pipeline }
func (s *Server) Notifier() *Notifier { return s.notifier }
func (s *Server) Disp() *Dispatcher   { return s.disp }

func (s *Server) Close() {
	s.fan.Close()
}
