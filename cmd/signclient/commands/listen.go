package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"signclient/internal/engine"
	"signclient/internal/jsonrpc"
)

var listenedEvents = []engine.EventName{
	engine.EventSessionRequest, engine.EventSessionEvent, engine.EventSessionUpdate,
	engine.EventSessionExtend, engine.EventSessionPing, engine.EventPairingPing,
	engine.EventSessionDelete, engine.EventPairingDelete, engine.EventSessionExpire,
	engine.EventPairingExpire, engine.EventProposalExpire,
}

type eventLine struct {
	Event  engine.EventName `json:"event"`
	ID     int64            `json:"id,omitempty"`
	Topic  string           `json:"topic,omitempty"`
	Params any              `json:"params,omitempty"`
}

func listenCmd() *cobra.Command {
	var echo bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print incoming events as JSON lines until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, name := range listenedEvents {
				off := client.On(name, func(ev engine.Event) {
					_ = enc.Encode(eventLine{Event: ev.Name, ID: ev.ID, Topic: ev.Topic, Params: ev.Params})
					if echo && ev.Name == engine.EventSessionRequest {
						answer(cmd, ev)
					}
				})
				defer off()
			}
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&echo, "echo", false, "answer session requests with their own params")
	return cmd
}

func answer(cmd *cobra.Command, ev engine.Event) {
	req := ev.Params.(engine.SessionRequest)
	params := req.Request.Params
	if len(params) == 0 {
		params = json.RawMessage("null")
	}
	res, err := jsonrpc.FormatResult(ev.ID, params)
	if err != nil {
		printf(cmd, "echo: %v\n", err)
		return
	}
	if err := client.Respond(cmd.Context(), engine.RespondParams{Topic: ev.Topic, Response: res}); err != nil {
		printf(cmd, "echo: %v\n", err)
	}
}
