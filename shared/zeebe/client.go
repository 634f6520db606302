package zeebe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

const (
	// DefaultServiceHost is the Camunda SaaS gateway domain
	DefaultServiceHost = "zeebe.camunda.io"
	// DefaultPort is the TLS port of SaaS gateways
	DefaultPort = 443

	// requestGrace bounds an activation call beyond the server-side long poll
	requestGrace = 10 * time.Second
)

// Config holds gateway connection configuration
type Config struct {
	Address     string // host:port, derived from ClusterID/Region when empty
	ClusterID   string
	Region      string
	ServiceHost string
	Insecure    bool // plaintext, for local gateways only
	Keepalive   time.Duration
}

// GatewayAddress returns the address the client dials.
func (c *Config) GatewayAddress() string {
	if c.Address != "" {
		return c.Address
	}
	host := c.ServiceHost
	if host == "" {
		host = DefaultServiceHost
	}
	return fmt.Sprintf("%s.%s.%s:%d", c.ClusterID, c.Region, host, DefaultPort)
}

// TokenSource yields the bearer token attached to every call
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ActivateRequest describes one ActivateJobs call
type ActivateRequest struct {
	JobType           string
	Worker            string
	MaxJobsToActivate int32
	Timeout           time.Duration // job lease
	RequestTimeout    time.Duration // server-side long poll
	FetchVariables    []string
}

// Client is a long-lived connection to a Zeebe gateway
type Client struct {
	config  *Config
	conn    *grpc.ClientConn
	gateway pb.GatewayClient
	tokens  TokenSource
	logger  *slog.Logger
}

// NewClient creates the gateway connection. tokens may be nil for gateways
// without authentication.
func NewClient(config *Config, tokens TokenSource, logger *slog.Logger, opts ...grpc.DialOption) (*Client, error) {
	address := config.GatewayAddress()

	var transport credentials.TransportCredentials
	if config.Insecure {
		transport = insecure.NewCredentials()
	} else {
		transport = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	keepaliveTime := config.Keepalive
	if keepaliveTime <= 0 {
		keepaliveTime = 30 * time.Second
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(transport),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                keepaliveTime,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway connection: %w", err)
	}

	logger.Info("Zeebe gateway client initialized",
		slog.String("address", address),
		slog.Bool("tls", !config.Insecure),
		slog.Bool("authenticated", tokens != nil),
	)

	return &Client{
		config:  config,
		conn:    conn,
		gateway: pb.NewGatewayClient(conn),
		tokens:  tokens,
		logger:  logger,
	}, nil
}

// authorize attaches the current bearer token to the outgoing metadata
func (c *Client) authorize(ctx context.Context) (context.Context, error) {
	if c.tokens == nil {
		return ctx, nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token), nil
}

// ActivateJobs long-polls the gateway and drains the response stream.
// An empty slice means the request timeout elapsed without any job.
func (c *Client) ActivateJobs(ctx context.Context, req *ActivateRequest) ([]*pb.ActivatedJob, error) {
	if req.JobType == "" {
		return nil, errors.New("job type is required")
	}

	callCtx := ctx
	if req.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.RequestTimeout+requestGrace)
		defer cancel()
	}

	callCtx, err := c.authorize(callCtx)
	if err != nil {
		return nil, err
	}

	stream, err := c.gateway.ActivateJobs(callCtx, &pb.ActivateJobsRequest{
		Type:              req.JobType,
		Worker:            req.Worker,
		Timeout:           req.Timeout.Milliseconds(),
		MaxJobsToActivate: req.MaxJobsToActivate,
		FetchVariable:     req.FetchVariables,
		RequestTimeout:    req.RequestTimeout.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to activate jobs: %w", err)
	}

	var jobs []*pb.ActivatedJob
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to receive activated jobs: %w", err)
		}
		jobs = append(jobs, resp.GetJobs()...)
	}

	c.logger.Debug("ActivateJobs returned",
		slog.String("job_type", req.JobType),
		slog.Int("jobs", len(jobs)),
	)

	return jobs, nil
}

// CompleteJob reports success and releases the job's lease
func (c *Client) CompleteJob(ctx context.Context, jobKey int64, variables string) error {
	ctx, err := c.authorize(ctx)
	if err != nil {
		return err
	}

	if _, err := c.gateway.CompleteJob(ctx, &pb.CompleteJobRequest{
		JobKey:    jobKey,
		Variables: variables,
	}); err != nil {
		return fmt.Errorf("failed to complete job %d: %w", jobKey, err)
	}

	c.logger.Debug("Job completed at gateway", slog.Int64("job_key", jobKey))
	return nil
}

// FailJob reports failure so the engine can retry after backoff or raise an incident
func (c *Client) FailJob(ctx context.Context, jobKey int64, retries int32, message string, backoff time.Duration) error {
	ctx, err := c.authorize(ctx)
	if err != nil {
		return err
	}

	if _, err := c.gateway.FailJob(ctx, &pb.FailJobRequest{
		JobKey:       jobKey,
		Retries:      retries,
		ErrorMessage: message,
		RetryBackOff: backoff.Milliseconds(),
	}); err != nil {
		return fmt.Errorf("failed to fail job %d: %w", jobKey, err)
	}

	c.logger.Debug("Job failed at gateway",
		slog.Int64("job_key", jobKey),
		slog.Int("retries", int(retries)),
	)
	return nil
}

// Close closes the gateway connection
func (c *Client) Close() error {
	c.logger.Info("Closing Zeebe gateway connection")

	if err := c.conn.Close(); err != nil {
		c.logger.Error("Failed to close gateway connection",
			slog.Any("error", err),
		)
		return err
	}
	return nil
}
