package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"log/slog"

	"margsync/internal/daemon"
	"margsync/internal/logging"
	"margsync/internal/queue"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx      context.Context
	cancel   context.CancelFunc
	shutdown func()
	wg       sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client requests daemon termination.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx, shutdown: shutdown}
	if err := rpcServer.RegisterName("Marg", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		shutdown:  shutdown,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String("component", "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.Online = status.Online
	resp.AttachedClients = status.AttachedClients
	resp.PendingReports = status.Pending.Reports
	resp.PendingResolutions = status.Pending.PendingResolutions
	resp.LastSync = status.LastSync
	resp.LastSyncError = status.LastSyncError
	resp.QueueDBPath = status.QueueDBPath
	resp.LockPath = status.LockFilePath
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Info("daemon stop requested via IPC")
	resp.Stopped = true
	if s.shutdown != nil {
		// Deferred so the RPC reply reaches the client first.
		go s.shutdown()
	}
	return nil
}

func (s *service) SyncNow(_ SyncNowRequest, resp *SyncNowResponse) error {
	s.log().Debug("sync requested via IPC")
	summary, ran, err := s.daemon.SyncNow(s.ctx)
	if err != nil {
		return err
	}
	resp.Ran = ran
	resp.Delivered = summary.Delivered
	resp.Rejected = summary.Rejected
	resp.Pending = summary.Pending
	return nil
}

func (s *service) ReportAdd(req ReportAddRequest, resp *ReportAddResponse) error {
	queued, err := s.daemon.AddReport(s.ctx, queue.NewReport{
		CategoryID:    req.CategoryID,
		Lat:           req.Lat,
		Lng:           req.Lng,
		ReporterEmail: req.ReporterEmail,
		Photo:         req.Photo,
		Description:   req.Description,
	})
	if err != nil {
		return err
	}
	resp.ID = queued.ID
	resp.CreatedAt = queued.CreatedAt
	return nil
}

func (s *service) ResolutionAdd(req ResolutionAddRequest, resp *ResolutionAddResponse) error {
	queued, alreadyPending, err := s.daemon.AddResolution(s.ctx, req.IssueID, req.Photo, queue.TaskSnapshot{
		CategoryName: req.CategoryName,
		Priority:     req.Priority,
	})
	if err != nil {
		return err
	}
	resp.ID = queued.ID
	resp.CreatedAt = queued.CreatedAt
	resp.AlreadyPending = alreadyPending
	return nil
}

func (s *service) QueueList(_ QueueListRequest, resp *QueueListResponse) error {
	reports, err := s.daemon.ListReports(s.ctx)
	if err != nil {
		return err
	}
	resolutions, err := s.daemon.ListResolutions(s.ctx, nil)
	if err != nil {
		return err
	}

	resp.Reports = make([]Report, 0, len(reports))
	for _, report := range reports {
		resp.Reports = append(resp.Reports, Report{
			ID:            report.ID,
			CategoryID:    report.CategoryID,
			Lat:           report.Lat,
			Lng:           report.Lng,
			ReporterEmail: report.ReporterEmail,
			Description:   report.Description,
			PhotoBytes:    len(report.Photo),
			CreatedAt:     report.CreatedAt,
			Claimed:       report.ClaimedAt != nil,
		})
	}
	resp.Resolutions = make([]Resolution, 0, len(resolutions))
	for _, resolution := range resolutions {
		resp.Resolutions = append(resp.Resolutions, Resolution{
			ID:           resolution.ID,
			IssueID:      resolution.IssueID,
			Status:       string(resolution.Status),
			CategoryName: resolution.Snapshot.CategoryName,
			Priority:     resolution.Snapshot.Priority,
			PhotoBytes:   len(resolution.Photo),
			CreatedAt:    resolution.CreatedAt,
			Claimed:      resolution.ClaimedAt != nil,
		})
	}
	return nil
}

func (s *service) QueueRemove(req QueueRemoveRequest, resp *QueueRemoveResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid record id %d", req.ID)
	}
	var (
		removed bool
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(req.Kind)) {
	case "report":
		removed, err = s.daemon.RemoveReport(s.ctx, req.ID)
	case "resolution":
		removed, err = s.daemon.RemoveResolution(s.ctx, req.ID)
	default:
		return fmt.Errorf("unknown record kind %q", req.Kind)
	}
	if err != nil {
		return err
	}
	resp.Removed = removed
	if removed {
		s.log().Info("queued record removed",
			logging.String("kind", req.Kind),
			logging.Int64("record_id", req.ID))
	}
	return nil
}

func (s *service) QueueClear(_ QueueClearRequest, resp *QueueClearResponse) error {
	s.log().Debug("queue clear requested")
	removed, err := s.daemon.ClearQueues(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("queues cleared", logging.Int64("removed_count", removed))
	return nil
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) error {
	health, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Reports = health.Reports
	resp.PendingResolutions = health.PendingResolutions
	resp.SyncedResolutions = health.SyncedResolutions
	resp.Total = health.Total
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TablesPresent = append(resp.TablesPresent, health.TablesPresent...)
	resp.MissingTables = append(resp.MissingTables, health.MissingTables...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalRecords = health.TotalRecords
	resp.Error = health.Error
	return err
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
