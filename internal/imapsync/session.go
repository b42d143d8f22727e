package imapsync

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"
)

const inboxFolder = "INBOX"

// session is the per-account sync task. Events for one account are
// processed one at a time: the transport layer signals new mail onto
// the events channel and the session's single consumer drains it
// strictly in order.
type session struct {
	manager *Manager
	params  AccountParams
	client  *imapclient.Client
	logger  *zap.Logger

	// events receives a signal whenever the server reports a mailbox
	// size change
	events chan struct{}

	// boxLock scopes each fetch-and-process sequence so a failed fetch
	// cannot leave the mailbox in a half-processed state
	boxLock sync.Mutex

	lastCount uint32
	stop      chan struct{}
	stopOnce  sync.Once
}

// connect opens the IMAP session for the account using the supplied
// credentials and transport parameters.
func (m *Manager) connect(_ context.Context, p AccountParams) (*session, error) {
	s := &session{
		manager: m,
		params:  p,
		logger:  m.logger.With(zap.String("account", p.Email)),
		events:  make(chan struct{}, 16),
		stop:    make(chan struct{}),
	}

	addr := net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	options := &imapclient.Options{
		UnilateralDataHandler: &imapclient.UnilateralDataHandler{
			Mailbox: func(data *imapclient.UnilateralDataMailbox) {
				if data.NumMessages != nil {
					select {
					case s.events <- struct{}{}:
					default:
						// consumer is behind, it will re-check the count anyway
					}
				}
			},
		},
	}

	var client *imapclient.Client
	var err error
	if p.Secure {
		client, err = imapclient.DialTLS(addr, options)
	} else {
		client, err = imapclient.DialStartTLS(addr, options)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(p.Email, p.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", p.Email, err)
	}

	s.client = client
	return s, nil
}

// shutdown asks the session loop to exit.
func (s *session) shutdown() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// run drives the session through backlog sync and then the listening
// state. It returns when the manager shuts down or the transport
// drops.
func (s *session) run(ctx context.Context) {
	defer func() {
		if err := s.client.Logout().Wait(); err != nil {
			s.client.Close()
		}
		s.logger.Info("Session closed")
	}()

	if err := s.backlogSync(ctx); err != nil {
		s.logger.Error("Backlog sync failed", zap.Error(err))
	}

	if err := s.listen(ctx); err != nil {
		s.logger.Error("Listening ended", zap.Error(err))
	}
}

// backlogSync fetches and processes all messages received within the
// trailing sync window. Individual message failures are isolated; a
// failure here never prevents the session from entering the listening
// state.
func (s *session) backlogSync(ctx context.Context) error {
	sel, err := s.client.Select(inboxFolder, nil).Wait()
	if err != nil {
		return fmt.Errorf("selecting %s: %w", inboxFolder, err)
	}
	s.lastCount = sel.NumMessages

	since := time.Now().Add(-s.manager.backlogWindow)
	searchData, err := s.client.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return fmt.Errorf("searching backlog: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		s.logger.Info("No backlog messages in sync window")
		return nil
	}

	uidSet := imap.UIDSetNum(uids...)
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := s.client.Fetch(uidSet, &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var raws [][]byte
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			s.logger.Warn("Failed to collect backlog message", zap.Error(err))
			continue
		}
		raw := buf.FindBodySection(bodySection)
		if raw == nil {
			s.logger.Warn("No source found for backlog message",
				zap.Uint32("uid", uint32(buf.UID)))
			continue
		}
		raws = append(raws, raw)
	}
	if err := fetchCmd.Close(); err != nil {
		s.logger.Warn("Backlog fetch ended with error", zap.Error(err))
	}

	stored := s.manager.processBacklog(ctx, raws, inboxFolder, s.params.Email)
	s.logger.Info("Backlog sync complete",
		zap.Int("fetched", len(raws)), zap.Int("stored", stored))
	return nil
}

// listen blocks in IDLE until the server signals new mail or the
// session is torn down. If the IDLE command itself fails, the session
// keeps the connection alive with a periodic NOOP heartbeat instead,
// trading push latency for a pull-based keep-alive.
func (s *session) listen(ctx context.Context) error {
	idleCmd, err := s.client.Idle()
	if err != nil {
		s.logger.Warn("IDLE not available, falling back to heartbeat", zap.Error(err))
		return s.heartbeatLoop(ctx)
	}
	s.logger.Info("IDLE mode active")

	for {
		select {
		case <-ctx.Done():
			_ = idleCmd.Close()
			return nil
		case <-s.stop:
			_ = idleCmd.Close()
			return nil
		case <-s.events:
			// IDLE must end before any other command goes out
			if err := idleCmd.Close(); err != nil {
				return fmt.Errorf("ending idle: %w", err)
			}
			_ = idleCmd.Wait()

			if err := s.handleNewMail(ctx); err != nil {
				s.logger.Error("Error processing new email", zap.Error(err))
			}

			idleCmd, err = s.client.Idle()
			if err != nil {
				return fmt.Errorf("restarting idle: %w", err)
			}
		}
	}
}

// heartbeatLoop keeps the session alive with periodic NOOPs. New-mail
// signals still arrive through the unilateral data handler.
func (s *session) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.manager.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-s.events:
			if err := s.handleNewMail(ctx); err != nil {
				s.logger.Error("Error processing new email", zap.Error(err))
			}
		case <-ticker.C:
			if err := s.client.Noop().Wait(); err != nil {
				return fmt.Errorf("heartbeat noop: %w", err)
			}
		}
	}
}

// handleNewMail re-checks the mailbox message count and, if it grew,
// fetches the most recent message by position and runs it through the
// classify-and-store pipeline with full notification context. The
// mailbox lock is held for the whole fetch-and-process sequence and
// released unconditionally.
func (s *session) handleNewMail(ctx context.Context) error {
	s.boxLock.Lock()
	defer s.boxLock.Unlock()

	statusData, err := s.client.Status(inboxFolder, &imap.StatusOptions{
		NumMessages: true,
	}).Wait()
	if err != nil {
		return fmt.Errorf("querying mailbox status: %w", err)
	}

	var count uint32
	if statusData.NumMessages != nil {
		count = *statusData.NumMessages
	}
	if count <= s.lastCount {
		s.lastCount = count
		return nil
	}
	s.lastCount = count

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := s.client.Fetch(imap.SeqSetNum(count), &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return fmt.Errorf("message %d not found", count)
	}
	buf, err := msg.Collect()
	if err != nil {
		return fmt.Errorf("collecting message: %w", err)
	}
	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return fmt.Errorf("no source found for message %d", count)
	}

	return s.manager.ingest(ctx, raw, inboxFolder, s.params.Email, true)
}
