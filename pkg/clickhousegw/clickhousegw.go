package clickhousegw

import (
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	bnet "github.com/bio-routing/bio-rd/net"
	"github.com/bio-routing/ipfixcodec/pkg/models/flow"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/ClickHouse/clickhouse-go"
	log "github.com/sirupsen/logrus"
)

const (
	tableName = "flows"
	ttlDays   = 14

	defaultConnectTimeout = time.Minute
)

// ClickhouseConfig represents a clickhouse client config
type ClickhouseConfig struct {
	Address  string `yaml:"address"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Cluster  string `yaml:"cluster"`
	Sharded  bool   `yaml:"sharded"`

	// ConnectTimeout bounds the retries of the initial connection
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

func (cfg *ClickhouseConfig) dsn() string {
	return fmt.Sprintf("tcp://%s?username=%s&password=%s&database=%s&read_timeout=10&write_timeout=20",
		cfg.Address, cfg.User, cfg.Password, cfg.Database)
}

type column struct {
	name    string
	colType string
	value   func(fl *flow.Flow) interface{}
}

var columns = []column{
	{"agent", "IPv6", func(fl *flow.Flow) interface{} { return fl.Agent.ToNetIP() }},
	{"observation_domain", "UInt32", func(fl *flow.Flow) interface{} { return fl.ObservationDomainID }},
	{"int_in", "String", func(fl *flow.Flow) interface{} { return fl.IntIn }},
	{"int_out", "String", func(fl *flow.Flow) interface{} { return fl.IntOut }},
	{"if_index_in", "UInt32", func(fl *flow.Flow) interface{} { return fl.IfIndexIn }},
	{"if_index_out", "UInt32", func(fl *flow.Flow) interface{} { return fl.IfIndexOut }},
	{"src_ip_addr", "IPv6", func(fl *flow.Flow) interface{} { return fl.SrcAddr.ToNetIP() }},
	{"dst_ip_addr", "IPv6", func(fl *flow.Flow) interface{} { return fl.DstAddr.ToNetIP() }},
	{"src_ip_pfx_addr", "IPv6", func(fl *flow.Flow) interface{} { return pfxAddr(fl.SrcPfx) }},
	{"src_ip_pfx_len", "UInt8", func(fl *flow.Flow) interface{} { return fl.SrcPfx.Pfxlen() }},
	{"dst_ip_pfx_addr", "IPv6", func(fl *flow.Flow) interface{} { return pfxAddr(fl.DstPfx) }},
	{"dst_ip_pfx_len", "UInt8", func(fl *flow.Flow) interface{} { return fl.DstPfx.Pfxlen() }},
	{"nexthop", "IPv6", func(fl *flow.Flow) interface{} { return fl.NextHop.ToNetIP() }},
	{"src_asn", "UInt32", func(fl *flow.Flow) interface{} { return fl.SrcAs }},
	{"dst_asn", "UInt32", func(fl *flow.Flow) interface{} { return fl.DstAs }},
	{"ip_protocol", "UInt8", func(fl *flow.Flow) interface{} { return fl.Protocol }},
	{"tos", "UInt8", func(fl *flow.Flow) interface{} { return fl.TOS }},
	{"src_port", "UInt16", func(fl *flow.Flow) interface{} { return fl.SrcPort }},
	{"dst_port", "UInt16", func(fl *flow.Flow) interface{} { return fl.DstPort }},
	{"vrf_in", "UInt32", func(fl *flow.Flow) interface{} { return fl.VRFIn }},
	{"vrf_out", "UInt32", func(fl *flow.Flow) interface{} { return fl.VRFOut }},
	{"timestamp", "DateTime", func(fl *flow.Flow) interface{} { return time.Unix(fl.Timestamp, 0) }},
	{"size", "UInt64", func(fl *flow.Flow) interface{} { return fl.Size }},
	{"packets", "UInt64", func(fl *flow.Flow) interface{} { return fl.Packets }},
	{"samplerate", "UInt64", func(fl *flow.Flow) interface{} { return fl.Samplerate }},
}

// pfxAddr maps the unset prefix of flows without prefix length fields onto ::
func pfxAddr(p bnet.Prefix) net.IP {
	if p == (bnet.Prefix{}) {
		return net.IPv6unspecified
	}

	return p.BaseAddr().ToNetIP()
}

// ClickHouseGateway stores flows in clickhouse
type ClickHouseGateway struct {
	cfg *ClickhouseConfig
	db  *sql.DB
}

// New connects to clickhouse and creates the flows table if it does not exist
func New(cfg *ClickhouseConfig) (*ClickHouseGateway, error) {
	c, err := sql.Open("clickhouse", cfg.dsn())
	if err != nil {
		return nil, errors.Wrap(err, "Unable to open database")
	}

	err = ping(c, cfg.ConnectTimeout)
	if err != nil {
		c.Close()
		return nil, err
	}

	gw := &ClickHouseGateway{
		cfg: cfg,
		db:  c,
	}

	err = gw.createFlowsTable()
	if err != nil {
		return nil, err
	}

	return gw, nil
}

// ping waits for the database to become reachable. Server side exceptions are not retried.
func ping(db *sql.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout

	return backoff.RetryNotify(func() error {
		err := db.Ping()
		if err == nil {
			return nil
		}

		if exception, ok := err.(*clickhouse.Exception); ok {
			log.WithFields(log.Fields{
				"code":        exception.Code,
				"stack_trace": exception.StackTrace,
			}).Error(exception.Message)
			return backoff.Permanent(errors.Wrap(err, "Ping failed"))
		}

		return errors.Wrap(err, "Ping failed")
	}, b, func(err error, next time.Duration) {
		log.WithError(err).WithField("retry_in", next).Warning("Clickhouse not reachable")
	})
}

func (c *ClickHouseGateway) createFlowsTable() error {
	ddls := []string{c.getCreateTableSchemaDDL(true, time.Now().Unix())}
	if c.cfg.Sharded {
		ddls = append(ddls, c.getCreateTableSchemaDDL(false, 0))
	}

	for _, ddl := range ddls {
		_, err := c.db.Exec(ddl)
		if err != nil {
			return errors.Wrap(err, "Query failed")
		}
	}

	return nil
}

// getCreateTableSchemaDDL returns the DDL of the flows table. Sharded setups get a replicated
// base table per shard and a distributed table on top of it.
func (c *ClickHouseGateway) getCreateTableSchemaDDL(isBaseTable bool, zookeeperPathPrefix int64) string {
	name := tableName
	onCluster := ""
	engine := "MergeTree()"
	ttl := fmt.Sprintf("\n\t\tTTL timestamp + INTERVAL %d DAY", ttlDays)

	if c.cfg.Sharded {
		onCluster = " ON CLUSTER " + c.cfg.Cluster
		if isBaseTable {
			name = fmt.Sprintf("_%s.%s_base", c.cfg.Database, tableName)
			engine = fmt.Sprintf("ReplicatedMergeTree('/clickhouse/tables/{shard}/%s/%s_%d', '{replica}')",
				c.cfg.Database, tableName, zookeeperPathPrefix)
		} else {
			engine = fmt.Sprintf("Distributed(%s, _%s, %s_base, rand())", c.cfg.Cluster, c.cfg.Database, tableName)
			ttl = ""
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\t\tCREATE TABLE IF NOT EXISTS %s%s (\n", name, onCluster)
	for i, col := range columns {
		sep := ","
		if i == len(columns)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "\t\t\t%-18s %s%s\n", col.name, col.colType, sep)
	}
	fmt.Fprintf(&b, "\t\t) ENGINE = %s", engine)

	if c.cfg.Sharded && !isBaseTable {
		b.WriteString("\n\t")
		return b.String()
	}

	b.WriteString("\n\t\tPARTITION BY toStartOfTenMinutes(timestamp)")
	b.WriteString("\n\t\tORDER BY (timestamp)")
	b.WriteString(ttl)
	b.WriteString("\n\t\tSETTINGS index_granularity = 8192\n\t")

	return b.String()
}

func insertStatement() string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.name
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableName,
		strings.Join(names, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))
}

func flowToRow(fl *flow.Flow) []interface{} {
	row := make([]interface{}, len(columns))
	for i, col := range columns {
		row[i] = col.value(fl)
	}

	return row
}

// InsertFlows inserts flows into clickhouse
func (c *ClickHouseGateway) InsertFlows(flows []*flow.Flow) error {
	tx, err := c.db.Begin()
	if err != nil {
		return errors.Wrap(err, "Begin failed")
	}

	stmt, err := tx.Prepare(insertStatement())
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "Prepare failed")
	}

	defer stmt.Close()

	for _, fl := range flows {
		_, err := stmt.Exec(flowToRow(fl)...)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, "Exec failed")
		}
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "Commit failed")
	}

	return nil
}

// Close closes the database handle
func (c *ClickHouseGateway) Close() error {
	return c.db.Close()
}
