package memjoy

import (
	"context"
	"time"

	"github.com/efritz/memjoy/iface"
)

func (c *client) Touch(ctx context.Context, key string, lifetime time.Duration, configs ...CallFunc) (bool, error) {
	return c.doBool(ctx, &Operation{Verb: iface.VerbTouch, Keys: []string{key}, Lifetime: lifetime}, configs)
}

func (c *client) Get(ctx context.Context, key string, configs ...CallFunc) ([]byte, bool, error) {
	result, err := c.do(ctx, &Operation{Verb: iface.VerbGet, Keys: []string{key}}, configs)
	if err != nil {
		return nil, false, err
	}

	return result.Value, result.Found, nil
}

func (c *client) Gets(ctx context.Context, key string, configs ...CallFunc) (*Item, bool, error) {
	result, err := c.do(ctx, &Operation{Verb: iface.VerbGets, Keys: []string{key}}, configs)
	if err != nil || !result.Found {
		return nil, false, err
	}

	item := &Item{
		Key:   key,
		Value: result.Value,
		Flags: result.Flags,
		CAS:   result.CAS,
	}

	return item, true, nil
}

func (c *client) GetMulti(ctx context.Context, keys []string, configs ...CallFunc) (map[string][]byte, error) {
	result, err := c.do(ctx, &Operation{Verb: iface.VerbGetMulti, Keys: keys}, configs)
	if err != nil {
		return nil, err
	}

	if result.Values == nil {
		return map[string][]byte{}, nil
	}

	return result.Values, nil
}

func (c *client) Set(ctx context.Context, key string, value []byte, lifetime time.Duration, configs ...CallFunc) (bool, error) {
	return c.store(ctx, iface.VerbSet, key, value, lifetime, configs)
}

func (c *client) Replace(ctx context.Context, key string, value []byte, lifetime time.Duration, configs ...CallFunc) (bool, error) {
	return c.store(ctx, iface.VerbReplace, key, value, lifetime, configs)
}

func (c *client) Add(ctx context.Context, key string, value []byte, lifetime time.Duration, configs ...CallFunc) (bool, error) {
	return c.store(ctx, iface.VerbAdd, key, value, lifetime, configs)
}

func (c *client) CAS(ctx context.Context, key string, value []byte, lifetime time.Duration, cas uint64, configs ...CallFunc) (bool, error) {
	return c.doBool(ctx, &Operation{
		Verb:     iface.VerbCAS,
		Keys:     []string{key},
		Value:    value,
		Lifetime: lifetime,
		CAS:      cas,
	}, configs)
}

func (c *client) Append(ctx context.Context, key string, value []byte, configs ...CallFunc) (bool, error) {
	return c.doBool(ctx, &Operation{Verb: iface.VerbAppend, Keys: []string{key}, Value: value}, configs)
}

func (c *client) Prepend(ctx context.Context, key string, value []byte, configs ...CallFunc) (bool, error) {
	return c.doBool(ctx, &Operation{Verb: iface.VerbPrepend, Keys: []string{key}, Value: value}, configs)
}

func (c *client) Incr(ctx context.Context, key string, delta uint64, configs ...CallFunc) (uint64, bool, error) {
	return c.doCounter(ctx, iface.VerbIncr, key, delta, configs)
}

func (c *client) Decr(ctx context.Context, key string, delta uint64, configs ...CallFunc) (uint64, bool, error) {
	return c.doCounter(ctx, iface.VerbDecr, key, delta, configs)
}

func (c *client) Del(ctx context.Context, key string, configs ...CallFunc) (bool, error) {
	return c.doBool(ctx, &Operation{Verb: iface.VerbDel, Keys: []string{key}}, configs)
}

func (c *client) Version(ctx context.Context, configs ...CallFunc) ([]Info, error) {
	return c.doInfo(ctx, &Operation{Verb: iface.VerbVersion}, configs)
}

func (c *client) Flush(ctx context.Context, configs ...CallFunc) (bool, error) {
	return c.doBool(ctx, &Operation{Verb: iface.VerbFlush}, configs)
}

func (c *client) Stats(ctx context.Context, configs ...CallFunc) ([]Info, error) {
	return c.doInfo(ctx, &Operation{Verb: iface.VerbStats}, configs)
}

func (c *client) Settings(ctx context.Context, configs ...CallFunc) ([]Info, error) {
	return c.doInfo(ctx, &Operation{Verb: iface.VerbSettings}, configs)
}

func (c *client) Slabs(ctx context.Context, configs ...CallFunc) ([]Info, error) {
	return c.doInfo(ctx, &Operation{Verb: iface.VerbSlabs}, configs)
}

func (c *client) Items(ctx context.Context, configs ...CallFunc) ([]Info, error) {
	return c.doInfo(ctx, &Operation{Verb: iface.VerbItems}, configs)
}

func (c *client) Cachedump(ctx context.Context, slabID, limit int, configs ...CallFunc) ([]Info, error) {
	return c.doInfo(ctx, &Operation{Verb: iface.VerbCachedump, SlabID: slabID, Limit: limit}, configs)
}

func (c *client) End(ctx context.Context, configs ...CallFunc) (bool, error) {
	return c.doBool(ctx, &Operation{Verb: iface.VerbEnd}, configs)
}

//
// Result decoding

func (c *client) store(ctx context.Context, verb Verb, key string, value []byte, lifetime time.Duration, configs []CallFunc) (bool, error) {
	return c.doBool(ctx, &Operation{Verb: verb, Keys: []string{key}, Value: value, Lifetime: lifetime}, configs)
}

func (c *client) doBool(ctx context.Context, op *Operation, configs []CallFunc) (bool, error) {
	result, err := c.do(ctx, op, configs)
	if err != nil {
		return false, err
	}

	return result.OK, nil
}

func (c *client) doCounter(ctx context.Context, verb Verb, key string, delta uint64, configs []CallFunc) (uint64, bool, error) {
	result, err := c.do(ctx, &Operation{Verb: verb, Keys: []string{key}, Delta: delta}, configs)
	if err != nil {
		return 0, false, err
	}

	return result.Counter, result.Found, nil
}

func (c *client) doInfo(ctx context.Context, op *Operation, configs []CallFunc) ([]Info, error) {
	result, err := c.do(ctx, op, configs)
	if err != nil {
		return nil, err
	}

	return result.Info, nil
}
