package command

import (
	"fmt"
	"strings"
	"time"

	"persistkit/internal/entity"
	"persistkit/internal/query"
	"persistkit/internal/schema"
)

// Builder composes commands for one mapped type. It is immutable and safe
// for concurrent use.
type Builder struct {
	desc    *schema.Descriptor
	dia     schema.Dialect
	tpl     schema.Templates
	tr      *query.Translator
	timeout time.Duration
	now     func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithTimeout sets the per-command timeout carried on built commands.
func WithTimeout(d time.Duration) BuilderOption {
	return func(b *Builder) { b.timeout = d }
}

// WithClock injects the write-timestamp source, for reproducible tests.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder binds a builder to a descriptor and dialect.
func NewBuilder(desc *schema.Descriptor, dia schema.Dialect, opts ...BuilderOption) *Builder {
	b := &Builder{
		desc: desc,
		dia:  dia,
		tpl:  desc.Templates(dia),
		tr:   query.NewTranslator(desc, dia),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Translator exposes the builder's translator for read composition.
func (b *Builder) Translator() *query.Translator { return b.tr }

// Insert builds the command that creates a row at version 1.
func (b *Builder) Insert(e entity.Entity) (*Command, error) {
	params, key, err := b.columnParams(e)
	if err != nil {
		return nil, err
	}
	params = params.With(schema.VersionColumn, int64(1))
	params = params.With(schema.LastWriteColumn, b.now().UTC())
	if b.desc.Expiry {
		params = params.With(schema.ExpiryColumn, expiryValue(e))
	}
	return &Command{
		Kind:    KindInsert,
		SQL:     b.tpl.Insert,
		Params:  params,
		Key:     key,
		Timeout: b.timeout,
	}, nil
}

// Update builds the version-checked command that rewrites a row's mapped
// columns and increments its version.
func (b *Builder) Update(e entity.Entity, expectedVersion int64) (*Command, error) {
	params, key, err := b.columnParams(e)
	if err != nil {
		return nil, err
	}
	params = params.With(schema.LastWriteColumn, b.now().UTC())
	if b.desc.Expiry {
		params = params.With(schema.ExpiryColumn, expiryValue(e))
	}
	params = params.With("expectedVersion", expectedVersion)
	return &Command{
		Kind:            KindUpdate,
		SQL:             b.tpl.Update,
		Params:          params,
		Key:             key,
		ExpectedVersion: expectedVersion,
		Timeout:         b.timeout,
	}, nil
}

// Delete builds the version-checked delete. Soft-delete capable types get
// an UPDATE of the IsDeleted flag instead of a row removal.
func (b *Builder) Delete(key entity.Key, expectedVersion int64) (*Command, error) {
	params, err := b.keyParams(key)
	if err != nil {
		return nil, err
	}
	if b.desc.SoftDelete {
		params = params.With(schema.LastWriteColumn, b.now().UTC())
	}
	params = params.With("expectedVersion", expectedVersion)
	return &Command{
		Kind:            KindDelete,
		SQL:             b.tpl.Delete,
		Params:          params,
		Key:             key,
		ExpectedVersion: expectedVersion,
		Timeout:         b.timeout,
	}, nil
}

// SelectByKey builds the primary-key read. Soft-deleted and expired rows
// are filtered out unless the options opt in; the filters follow the key
// conjuncts in the fixed WHERE order.
func (b *Builder) SelectByKey(key entity.Key, opts query.SelectOptions) (*Command, error) {
	params, err := b.keyParams(key)
	if err != nil {
		return nil, err
	}
	sqlText := b.tpl.SelectByKey
	if b.desc.SoftDelete && !opts.IncludeDeleted {
		sqlText += fmt.Sprintf(" AND (%s = %s)", schema.SoftDeleteColumn, b.dia.BoolLiteral(false))
	}
	if b.desc.Expiry && !opts.IncludeExpired {
		now := b.now
		if opts.Now != nil {
			now = opts.Now
		}
		params = params.With("now", now().UTC())
		sqlText += fmt.Sprintf(" AND (%s IS NULL OR %s > @now)", schema.ExpiryColumn, schema.ExpiryColumn)
	}
	return &Command{
		Kind:    KindSelect,
		SQL:     sqlText,
		Params:  params,
		Key:     key,
		Timeout: b.timeout,
	}, nil
}

// CurrentVersion builds the unfiltered version probe used to distinguish a
// concurrency conflict from a missing row after a zero-row write.
func (b *Builder) CurrentVersion(key entity.Key) (*Command, error) {
	params, err := b.keyParams(key)
	if err != nil {
		return nil, err
	}
	var pkConds []string
	for _, pk := range b.desc.PK {
		pkConds = append(pkConds, fmt.Sprintf("(%s = @%s)", pk, pk))
	}
	sqlText := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		schema.VersionColumn, b.desc.Table, strings.Join(pkConds, " AND "))
	return &Command{
		Kind:    KindSelect,
		SQL:     sqlText,
		Params:  params,
		Key:     key,
		Timeout: b.timeout,
	}, nil
}

// Select builds a filtered read from a predicate tree and options.
func (b *Builder) Select(pred query.Expr, opts query.SelectOptions) (*Command, error) {
	sqlText, params, err := b.tr.Select(pred, opts)
	if err != nil {
		return nil, err
	}
	return &Command{Kind: KindSelect, SQL: sqlText, Params: params, Timeout: b.timeout}, nil
}

// Count builds a COUNT over the same filters as Select.
func (b *Builder) Count(pred query.Expr, opts query.SelectOptions) (*Command, error) {
	sqlText, params, err := b.tr.Count(pred, opts)
	if err != nil {
		return nil, err
	}
	return &Command{Kind: KindSelect, SQL: sqlText, Params: params, Timeout: b.timeout}, nil
}

// columnParams zips the entity's mapped values with the descriptor's
// columns and extracts the primary-key tuple.
func (b *Builder) columnParams(e entity.Entity) (query.Params, entity.Key, error) {
	values := e.Values()
	if len(values) != len(b.desc.Columns) {
		return nil, nil, fmt.Errorf("%s: %d values for %d mapped columns",
			b.desc.Name, len(values), len(b.desc.Columns))
	}
	params := make(query.Params, 0, len(values)+4)
	var key entity.Key
	for i, c := range b.desc.Columns {
		params = append(params, query.Param{Name: c.Name, Value: values[i]})
		if c.PrimaryKey {
			key = append(key, values[i])
		}
	}
	return params, key, nil
}

func (b *Builder) keyParams(key entity.Key) (query.Params, error) {
	if len(key) != len(b.desc.PK) {
		return nil, fmt.Errorf("%s: %d key values for %d key columns",
			b.desc.Name, len(key), len(b.desc.PK))
	}
	params := make(query.Params, 0, len(key)+2)
	for i, pk := range b.desc.PK {
		params = append(params, query.Param{Name: pk, Value: key[i]})
	}
	return params, nil
}

// expiryValue reads the expiration from the entity's version record; nil
// stores NULL, meaning the row never expires.
func expiryValue(e entity.Entity) any {
	if at := e.Record().ExpiresAt; at != nil {
		return at.UTC()
	}
	return nil
}
