package grpc_control

import (
	"context"
	"strconv"
	"strings"

	"market-stream/src/backfill"
	"market-stream/src/logger"
	"market-stream/src/models"
	"market-stream/src/snapshot"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// IStatusSource reports live subscription counts.
type IStatusSource interface {
	ConnectionCount() int
	AccountCount() int
}

// ICacheStatus reports price cache counters.
type ICacheStatus interface {
	Stats() models.MCacheStats
}

// IBackfiller is the backfill engine surface.
type IBackfiller interface {
	MissingRanges(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MMissingRange, error)
	EnsureHistory(ctx context.Context, key models.MSeriesKey, start, end int64) ([]models.MCandle, error)
}

// IBroadcaster fans out events produced outside this process.
type IBroadcaster interface {
	BroadcastAssetCurveUpdate(ctx context.Context, timeframe string)
	BroadcastArenaAssetUpdate(payload map[string]interface{})
	BroadcastTradeUpdate(trade map[string]interface{})
	BroadcastPositionUpdate(accountID int64, positions []interface{})
	BroadcastModelChatUpdate(decision map[string]interface{})
}

// -----------------------------------------------------------------------------

// ControlService implements StreamControlServer.
type ControlService struct {
	Stream      IStatusSource
	Cache       ICacheStatus
	Backfiller  IBackfiller
	Broadcaster IBroadcaster
	Exchange    string
	Logger      *logger.Logger
}

func NewControlService(
	stream IStatusSource,
	cache ICacheStatus,
	backfiller IBackfiller,
	broadcaster IBroadcaster,
	exchange string,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Stream:      stream,
		Cache:       cache,
		Backfiller:  backfiller,
		Broadcaster: broadcaster,
		Exchange:    exchange,
		Logger:      log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	st := s.Cache.Stats()
	out, err := structpb.NewStruct(map[string]interface{}{
		"connections": s.Stream.ConnectionCount(),
		"accounts":    s.Stream.AccountCount(),
		"cache": map[string]interface{}{
			"total_entries":   st.TotalEntries,
			"valid_entries":   st.ValidEntries,
			"ttl_seconds":     st.TTLSeconds,
			"history_entries": st.HistoryEntries,
			"history_seconds": st.HistorySeconds,
			"hits":            float64(st.Hits),
			"misses":          float64(st.Misses),
		},
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// Backfill reports the gaps found before filling, then fills them and
// returns how many candles the range holds afterwards.
func (s *ControlService) Backfill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	args := req.AsMap()

	key := models.MSeriesKey{
		Exchange:    stringArg(args, "exchange", s.Exchange),
		Symbol:      strings.ToUpper(stringArg(args, "symbol", "")),
		Market:      stringArg(args, "market", models.DefaultMarket),
		Period:      stringArg(args, "period", "1m"),
		Environment: stringArg(args, "environment", models.DefaultEnvironment),
	}
	if key.Symbol == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol is required")
	}
	if _, ok := backfill.PeriodSeconds(key.Period); !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unsupported period %q", key.Period)
	}
	start, okStart := int64Arg(args, "start")
	end, okEnd := int64Arg(args, "end")
	if !okStart || !okEnd {
		return nil, status.Error(codes.InvalidArgument, "start and end are required unix timestamps")
	}
	if start > end {
		return nil, status.Error(codes.InvalidArgument, "start must not be after end")
	}

	missing, err := s.Backfiller.MissingRanges(ctx, key, start, end)
	if err != nil {
		s.Logger.Error("gRPC: gap detection for %s %s failed: %v", key.Symbol, key.Period, err)
		return nil, status.Error(codes.Unavailable, "gap detection failed")
	}
	candles, err := s.Backfiller.EnsureHistory(ctx, key, start, end)
	if err != nil {
		s.Logger.Error("gRPC: backfill for %s %s failed: %v", key.Symbol, key.Period, err)
		return nil, status.Error(codes.Unavailable, "backfill failed")
	}

	ranges := make([]interface{}, 0, len(missing))
	for _, r := range missing {
		ranges = append(ranges, map[string]interface{}{"start": r.Start, "end": r.End})
	}

	s.Logger.Info("gRPC: Backfill %s %s %s: %d gaps, %d candles", key.Exchange, key.Symbol, key.Period, len(missing), len(candles))
	out, err := structpb.NewStruct(map[string]interface{}{
		"missing": ranges,
		"candles": len(candles),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode backfill result: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// Publish lets external producers (trade executor, AI decision loop, arena
// aggregator) push events to subscribers.
func (s *ControlService) Publish(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	args := req.AsMap()
	kind := stringArg(args, "type", "")

	payload, _ := args["payload"].(map[string]interface{})
	if payload == nil {
		payload = map[string]interface{}{}
	}
	// a top-level account_id routes payloads that do not carry their own
	if _, ok := snapshot.AccountIDOf(payload); !ok {
		if id, ok := snapshot.AccountIDOf(args); ok {
			payload["account_id"] = id
		}
	}

	switch kind {
	case models.MsgTradeUpdate:
		if _, ok := snapshot.AccountIDOf(payload); !ok {
			return nil, status.Error(codes.InvalidArgument, "account_id is required")
		}
		s.Broadcaster.BroadcastTradeUpdate(payload)

	case models.MsgModelChatUpdate:
		if _, ok := snapshot.AccountIDOf(payload); !ok {
			return nil, status.Error(codes.InvalidArgument, "account_id is required")
		}
		s.Broadcaster.BroadcastModelChatUpdate(payload)

	case models.MsgPositionUpdate:
		id, ok := snapshot.AccountIDOf(payload)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "account_id is required")
		}
		positions, _ := payload["positions"].([]interface{})
		s.Broadcaster.BroadcastPositionUpdate(id, positions)

	case models.MsgArenaAssetUpdate:
		s.Broadcaster.BroadcastArenaAssetUpdate(payload)

	case models.MsgAssetCurveUpdate:
		tf := stringArg(payload, "timeframe", "1h")
		if tf != "5m" && tf != "1h" && tf != "1d" {
			return nil, status.Errorf(codes.InvalidArgument, "invalid timeframe %q", tf)
		}
		s.Broadcaster.BroadcastAssetCurveUpdate(ctx, tf)

	default:
		return nil, status.Errorf(codes.InvalidArgument, "unsupported message type %q", kind)
	}
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func stringArg(args map[string]interface{}, key, def string) string {
	if v, ok := args[key].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func int64Arg(args map[string]interface{}, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), v == float64(int64(v))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

var _ StreamControlServer = (*ControlService)(nil)
