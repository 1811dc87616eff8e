package main

import (
	"context"
	"fmt"

	"authwatch/config"
	"authwatch/internal/alerts"
	"authwatch/internal/detect"
	inputfile "authwatch/internal/input/file"
	inputredis "authwatch/internal/input/redis"
	"authwatch/internal/logger"
	"authwatch/internal/metrics"
	"authwatch/internal/output/reportclickhouse"
	"authwatch/internal/output/reportcsv"
	"authwatch/internal/output/reportelastic"
	"authwatch/internal/output/reporthttp"
	"authwatch/internal/output/reportjson"
	"authwatch/internal/output/reportkafka"
	"authwatch/internal/output/reportparquet"
	"authwatch/internal/pipeline"
	"authwatch/internal/rules"
	"authwatch/internal/transform/sshd"
)

type components struct {
	source      pipeline.LineSource
	transformer *sshd.Transformer
	aggregator  *detect.Aggregator
	sinks       []pipeline.Sink
	metrics     *metrics.Metrics
}

func build(ctx context.Context, cfg *config.Config) (*components, error) {
	aw := cfg.AuthWatch
	c := &components{}

	source, err := buildSource(aw.Input)
	if err != nil {
		return nil, err
	}
	c.source = source

	c.transformer = sshd.NewTransformer(sshd.NewParser(sshd.Options{
		Year:     aw.Parser.Year,
		Location: aw.Parser.Location(),
	}))

	opts, err := buildDetectOptions(aw)
	if err != nil {
		source.Close()
		return nil, err
	}
	prefixes := make([]detect.RegionPrefix, 0, len(aw.Detection.RegionPrefixes))
	for _, p := range aw.Detection.RegionPrefixes {
		prefixes = append(prefixes, detect.RegionPrefix{Prefix: p.Prefix, Label: p.Label})
	}
	c.aggregator = detect.NewAggregator(detect.Config{
		BruteForceThreshold:   aw.Detection.BruteForceThreshold,
		TimeWindowMinutes:     aw.Detection.TimeWindowMinutes,
		VulnerableAccounts:    aw.Detection.VulnerableAccounts,
		VulnerableMinAttempts: aw.Detection.VulnerableMinAttempts,
		BreachMinFailures:     aw.Detection.BreachMinFailures,
		RegionPrefixes:        prefixes,
	}, opts...)

	sinks, err := buildSinks(ctx, aw.Output)
	if err != nil {
		source.Close()
		for _, s := range sinks {
			s.Close()
		}
		return nil, err
	}
	c.sinks = sinks

	if aw.Metrics.Enabled {
		c.metrics = metrics.NewMetrics()
	}
	return c, nil
}

func buildSource(in config.InputConfig) (pipeline.LineSource, error) {
	switch in.Mode {
	case "redis":
		consumer, err := inputredis.NewConsumer(inputredis.Config{
			Addr:         in.Redis.Addr,
			Password:     in.Redis.Password,
			DB:           in.Redis.DB,
			Key:          in.Redis.Key,
			BlockTimeout: in.Redis.BlockTimeout,
			BatchSize:    in.Redis.BatchSize,
			MaxLines:     in.Redis.MaxLines,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis consumer: %w", err)
		}
		logger.Infof("Input mode: redis (%s key=%s)", in.Redis.Addr, in.Redis.Key)
		return consumer, nil
	default:
		reader, err := inputfile.NewReader(in.Paths...)
		if err != nil {
			return nil, err
		}
		logger.Infof("Input mode: file (%v)", in.Paths)
		return reader, nil
	}
}

func buildDetectOptions(aw config.AuthWatchConfig) ([]detect.Option, error) {
	var opts []detect.Option
	if aw.Rules.Enabled {
		engine, stats, err := rules.NewSigmaEngine(aw.Rules.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load sigma rules: %w", err)
		}
		logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
			stats.Loaded, stats.SkippedComplex, stats.SkippedDatasource, stats.SkippedInvalid, stats.TotalFiles)
		if stats.Loaded == 0 {
			logger.Warnf("No compatible Sigma rules loaded; rule tagging is effectively disabled")
		}
		opts = append(opts, detect.WithRuleEngine(engine))
	}
	if aw.Alerts.Enabled {
		opts = append(opts, detect.WithScorer(alerts.NewScorer(alerts.Config{
			Threshold:    aw.Alerts.Threshold,
			MaxOffenders: aw.Alerts.MaxOffenders,
		})))
	}
	return opts, nil
}

func buildSinks(ctx context.Context, out config.OutputConfig) ([]pipeline.Sink, error) {
	var sinks []pipeline.Sink

	if out.CSV.Enabled {
		w, err := reportcsv.NewWriter(out.Dir)
		if err != nil {
			return sinks, fmt.Errorf("failed to create csv writer: %w", err)
		}
		sinks = append(sinks, w)
	}
	if out.Parquet.Enabled {
		w, err := reportparquet.NewWriter(out.Dir)
		if err != nil {
			return sinks, fmt.Errorf("failed to create parquet writer: %w", err)
		}
		sinks = append(sinks, w)
	}
	if out.JSONL.Enabled {
		w, err := reportjson.NewWriter(out.JSONL.Path, out.JSONL.IncludeEvents)
		if err != nil {
			return sinks, fmt.Errorf("failed to create jsonl writer: %w", err)
		}
		sinks = append(sinks, w)
	}
	if out.ClickHouse.Enabled {
		ch := out.ClickHouse
		w, err := reportclickhouse.NewWriter(ctx, reportclickhouse.Config{
			Addr:           ch.Addr,
			Database:       ch.Database,
			Username:       ch.Username,
			Password:       ch.Password,
			EventsTable:    ch.EventsTable,
			AnomaliesTable: ch.AnomaliesTable,
			SummaryTable:   ch.SummaryTable,
			DialTimeout:    ch.DialTimeout,
			CreateTables:   ch.CreateTables,
		})
		if err != nil {
			return sinks, fmt.Errorf("failed to create clickhouse writer: %w", err)
		}
		sinks = append(sinks, w)
	}
	if out.Kafka.Enabled {
		w, err := reportkafka.NewWriter(reportkafka.Config{
			Brokers:      out.Kafka.Brokers,
			Topic:        out.Kafka.Topic,
			BatchSize:    out.Kafka.BatchSize,
			BatchTimeout: out.Kafka.BatchTimeout,
		})
		if err != nil {
			return sinks, fmt.Errorf("failed to create kafka writer: %w", err)
		}
		sinks = append(sinks, w)
	}
	if out.Elasticsearch.Enabled {
		es := out.Elasticsearch
		w, err := reportelastic.NewWriter(reportelastic.Config{
			Addresses:    es.Addresses,
			Username:     es.Username,
			Password:     es.Password,
			AnomalyIndex: es.AnomalyIndex,
			SummaryIndex: es.SummaryIndex,
		})
		if err != nil {
			return sinks, fmt.Errorf("failed to create elasticsearch writer: %w", err)
		}
		sinks = append(sinks, w)
	}
	if out.HTTP.Enabled {
		w, err := reporthttp.NewWriter(reporthttp.Config{
			URL:     out.HTTP.URL,
			Timeout: out.HTTP.Timeout,
			Headers: out.HTTP.Headers,
		})
		if err != nil {
			return sinks, fmt.Errorf("failed to create http writer: %w", err)
		}
		sinks = append(sinks, w)
	}

	if len(sinks) == 0 {
		logger.Warnf("No outputs enabled; results are only printed")
	}
	for _, s := range sinks {
		logger.Infof("Output enabled: %s", s.Name())
	}
	return sinks, nil
}
