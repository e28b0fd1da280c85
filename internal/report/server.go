package report

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tkellerman/salesweather/internal/derived"
	"github.com/tkellerman/salesweather/internal/harmonize"
	"github.com/tkellerman/salesweather/internal/masking"
	"github.com/tkellerman/salesweather/internal/timer"
	"github.com/tkellerman/salesweather/pkg/config"
)

// Server serves derived dataset queries over a line-delimited JSON TCP
// protocol. Masking happens here, at the read boundary, per session role.
// The underlying datasets never store masked values.
type Server struct {
	config   *config.ReportServerConfig
	sessions *SessionManager
	timers   *timer.TimerManager
	pipeline *derived.Pipeline
	masker   *masking.Engine
	listener net.Listener
	wg       sync.WaitGroup
	stopCh   chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a new report server
func NewServer(cfg *config.ReportServerConfig, sessions *SessionManager, timers *timer.TimerManager, pipeline *derived.Pipeline, masker *masking.Engine) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:   cfg,
		sessions: sessions,
		timers:   timers,
		pipeline: pipeline,
		masker:   masker,
		stopCh:   make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the report server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start report server: %w", err)
	}

	s.listener = listener
	fmt.Printf("Report server listening on %s\n", addr)

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Stop stops the report server gracefully
func (s *Server) Stop() {
	close(s.stopCh)
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()
	fmt.Println("Report server stopped")
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				fmt.Printf("Failed to accept connection: %v\n", err)
				continue
			}
		}

		if s.sessions.Count() >= s.config.MaxSessions {
			fmt.Println("Maximum sessions reached, rejecting connection")
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	sessionID := uuid.New().String()
	fmt.Printf("New session: %s from %s\n", sessionID, conn.RemoteAddr())

	// The consumer must identify its role before anything else
	conn.SetReadDeadline(time.Now().Add(s.config.HelloTimeout))

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		fmt.Printf("Failed to read hello message: %v\n", err)
		return
	}

	msg, err := ParseMessage([]byte(line))
	if err != nil {
		fmt.Printf("Failed to parse hello message: %v\n", err)
		s.sendError(conn, "invalid message format")
		return
	}

	hello, ok := msg.(*HelloMessage)
	if !ok {
		fmt.Printf("Expected hello message, got %T\n", msg)
		s.sendError(conn, "expected hello message")
		return
	}

	// An unknown role still gets a session; masking fails closed for it.
	if err := s.sessions.Register(sessionID, hello.Role, conn); err != nil {
		fmt.Printf("Failed to register session: %v\n", err)
		s.sendError(conn, "failed to register")
		return
	}
	defer s.sessions.Unregister(sessionID)

	fmt.Printf("Session identified: %s (role=%s)\n", sessionID, hello.Role)

	if err := s.sendMessage(conn, NewAckMessage(AckStatusReady, "")); err != nil {
		fmt.Printf("Failed to send ack: %v\n", err)
		return
	}

	s.scheduleIdleTimer(sessionID)

	conn.SetReadDeadline(time.Time{})

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		line, err := reader.ReadString('\n')
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			fmt.Printf("Session %s closed: %v\n", sessionID, err)
			return
		}

		msg, err := ParseMessage([]byte(line))
		if err != nil {
			fmt.Printf("Failed to parse message: %v\n", err)
			s.sendError(conn, err.Error())
			continue
		}

		if err := s.handleMessage(hello.Role, msg, conn); err != nil {
			fmt.Printf("Failed to handle message: %v\n", err)
			s.sendError(conn, err.Error())
		}

		s.sessions.UpdateActivity(sessionID)
		s.scheduleIdleTimer(sessionID)
	}
}

func (s *Server) handleMessage(role string, msg interface{}, conn net.Conn) error {
	switch m := msg.(type) {
	case *QueryMessage:
		return s.handleQuery(role, m, conn)

	case *KeepaliveMessage:
		return s.sendMessage(conn, NewAckMessage(AckStatusAlive, ""))

	default:
		return fmt.Errorf("unknown message type: %T", msg)
	}
}

func (s *Server) handleQuery(role string, msg *QueryMessage, conn net.Conn) error {
	var rows []map[string]interface{}
	var err error

	switch msg.Dataset {
	case derived.DatasetDailyCityMetrics:
		rows, err = s.queryDailyCityMetrics(msg)
	case derived.DatasetCustomers:
		rows, err = s.queryCustomers(msg)
	default:
		return fmt.Errorf("dataset %s is not queryable", msg.Dataset)
	}
	if err != nil {
		return err
	}

	// Every column of every row passes through the masking engine for this
	// session's role; unknown roles see only unprotected columns.
	masked := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		masked[i] = s.masker.MaskRecord(row, role)
	}

	return s.sendMessage(conn, &RowsMessage{
		Type:    MsgTypeRows,
		Dataset: msg.Dataset,
		Count:   len(masked),
		Rows:    masked,
	})
}

func (s *Server) queryDailyCityMetrics(msg *QueryMessage) ([]map[string]interface{}, error) {
	metrics, err := s.pipeline.DailyCityMetrics(s.ctx)
	if err != nil {
		return nil, err
	}

	from, err := parseDateBound(msg.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDateBound(msg.To)
	if err != nil {
		return nil, err
	}

	var rows []map[string]interface{}
	for _, m := range metrics {
		if from != nil && m.Date.Before(*from) {
			continue
		}
		if to != nil && m.Date.After(*to) {
			continue
		}
		if msg.City != "" && harmonize.NormalizeKey(msg.City) != harmonize.NormalizeKey(m.City) {
			continue
		}
		if msg.Country != "" && harmonize.NormalizeKey(msg.Country) != harmonize.NormalizeKey(m.Country) {
			continue
		}

		rows = append(rows, map[string]interface{}{
			"date":                          m.Date.Format("2006-01-02"),
			"city":                          m.City,
			"country":                       m.Country,
			masking.ColumnDailySales:        m.DailySales,
			"avg_temperature_fahrenheit":    m.AvgTempF,
			"avg_temperature_celsius":       m.AvgTempC,
			"avg_precipitation_inches":      m.AvgPrecipIn,
			"avg_precipitation_millimeters": m.AvgPrecipMM,
			"max_wind_speed_mph":            m.MaxWindMPH,
		})
	}

	return rows, nil
}

func (s *Server) queryCustomers(msg *QueryMessage) ([]map[string]interface{}, error) {
	customers, err := s.pipeline.Customers(s.ctx)
	if err != nil {
		return nil, err
	}

	var rows []map[string]interface{}
	for _, c := range customers {
		if msg.City != "" && harmonize.NormalizeKey(msg.City) != harmonize.NormalizeKey(c.City) {
			continue
		}
		if msg.Country != "" && harmonize.NormalizeKey(msg.Country) != harmonize.NormalizeKey(c.Country) {
			continue
		}

		rows = append(rows, map[string]interface{}{
			"customer_id":             c.CustomerID,
			masking.ColumnFirstName:   c.FirstName,
			masking.ColumnLastName:    c.LastName,
			"city":                    c.City,
			"country":                 c.Country,
			masking.ColumnEmail:       c.Email,
			masking.ColumnPhoneNumber: c.PhoneNumber,
			"loyalty_tier":            c.LoyaltyTier,
		})
	}

	return rows, nil
}

func parseDateBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return &t, nil
}

func (s *Server) sendMessage(conn net.Conn, msg interface{}) error {
	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}

	_, err = conn.Write(append(data, '\n'))
	return err
}

func (s *Server) sendError(conn net.Conn, detail string) {
	s.sendMessage(conn, NewAckMessage(AckStatusError, detail))
}

func (s *Server) scheduleIdleTimer(sessionID string) {
	timerID := fmt.Sprintf("idle-%s", sessionID)
	expiryAt := time.Now().Add(s.config.IdleTimeout)

	callback := func() {
		fmt.Printf("Idle timeout for session %s\n", sessionID)

		session, exists := s.sessions.Get(sessionID)
		if !exists {
			return
		}

		// Unregister happens in the connection handler's deferred cleanup
		session.Conn.Close()
	}

	s.timers.Schedule(timerID, expiryAt, callback)
}
