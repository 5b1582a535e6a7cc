// internal/adapters/out/mail/launch_notifier.go
package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// EmailClient abstracts the actual mail transport.
type EmailClient interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// LaunchNotifier mails operators when a launch completes.
type LaunchNotifier struct {
	client EmailClient
	from   string
	to     []string
}

var _ launch.Notifier = (*LaunchNotifier)(nil)

// NewLaunchNotifier accepts a comma separated recipient list.
func NewLaunchNotifier(client EmailClient, from, to string) *LaunchNotifier {
	var rcpts []string
	for _, s := range strings.Split(to, ",") {
		if s = strings.TrimSpace(s); s != "" {
			rcpts = append(rcpts, s)
		}
	}
	return &LaunchNotifier{client: client, from: strings.TrimSpace(from), to: rcpts}
}

func (n *LaunchNotifier) LaunchCompleted(ctx context.Context, req launch.Request, res launch.Result) error {
	if n == nil || n.client == nil || len(n.to) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[Launchium] %s (%s) launched", req.Name, req.Symbol)
	body := buildLaunchBody(req, res)

	var firstErr error
	for _, to := range n.to {
		if err := n.client.Send(ctx, n.from, to, subject, body); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("notify %s: %w", to, err)
		}
	}
	return firstErr
}

func buildLaunchBody(req launch.Request, res launch.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Token:      %s (%s)\n", req.Name, req.Symbol)
	fmt.Fprintf(&b, "Mode:       %s\n", res.Mode)
	fmt.Fprintf(&b, "Mint:       %s\n", res.MintAddress)
	fmt.Fprintf(&b, "Metadata:   %s\n", res.MetadataAddress)
	fmt.Fprintf(&b, "Recipient:  %s\n", req.Recipient)
	fmt.Fprintf(&b, "Account:    %s\n", res.TokenAccount)
	fmt.Fprintf(&b, "Supply:     %d (decimals %d)\n", res.TotalSupply, res.Decimals)
	fmt.Fprintf(&b, "Fee:        %s SOL paid by %s\n", res.FeeCharged.String(), res.FeePayer)
	fmt.Fprintf(&b, "Signature:  %s\n", res.Signature)
	fmt.Fprintf(&b, "Explorer:   %s\n", res.ExplorerURL)
	return b.String()
}
