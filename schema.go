package datasource

import (
	"reflect"
	"strings"

	"github.com/a-peyrard/godi-datasource/inject"
)

// Slot is one of the six configuration values needed to build a connection source.
type Slot int

const (
	SlotUnique Slot = iota + 1
	SlotJNDIName
	SlotDriver
	SlotProperties
	SlotPoolMax
	SlotPoolMin
)

// KeyPrefix is the first segment of every configuration key of a data source.
const KeyPrefix = "datasource"

var (
	slotSuffixes = map[Slot]string{
		SlotUnique:     "unique",
		SlotJNDIName:   "jndi_name",
		SlotDriver:     "driver",
		SlotProperties: "properties",
		SlotPoolMax:    "pool_max",
		SlotPoolMin:    "pool_min",
	}

	slotTypes = map[Slot]reflect.Type{
		SlotUnique:     inject.StringType,
		SlotJNDIName:   inject.StringType,
		SlotDriver:     inject.StringType,
		SlotProperties: inject.TypeOf[Properties](),
		SlotPoolMax:    inject.TypeOf[int](),
		SlotPoolMin:    inject.TypeOf[int](),
	}
)

// Slots returns the six slots, in declaration order.
func Slots() []Slot {
	return []Slot{SlotUnique, SlotJNDIName, SlotDriver, SlotProperties, SlotPoolMax, SlotPoolMin}
}

func (s Slot) valid() bool {
	return s >= SlotUnique && s <= SlotPoolMin
}

func (s Slot) String() string {
	if suffix, found := slotSuffixes[s]; found {
		return suffix
	}
	return "unknown"
}

// Type returns the type the slot value is bound with.
func (s Slot) Type() reflect.Type {
	return slotTypes[s]
}

// LocalKey returns the key under which the slot is bound inside the private scope of a module.
func (s Slot) LocalKey() inject.Key {
	return inject.NewKey(s.Type(), inject.Named(KeyPrefix+"."+s.String()))
}

// Keys holds the namespaced configuration keys of a data source.
type Keys struct {
	Unique     string
	JNDIName   string
	Driver     string
	Properties string
	PoolMax    string
	PoolMin    string
}

// DeriveKeys namespaces the configuration keys of the data source called name, as
// "datasource.<name>.<slot>".
//
// Slot suffixes never contain a dot, so two distinct names never share a key.
func DeriveKeys(name string) (Keys, error) {
	if strings.TrimSpace(name) == "" {
		return Keys{}, invalid(name, 0, "name must not be empty")
	}

	prefix := KeyPrefix + "." + name + "."
	return Keys{
		Unique:     prefix + SlotUnique.String(),
		JNDIName:   prefix + SlotJNDIName.String(),
		Driver:     prefix + SlotDriver.String(),
		Properties: prefix + SlotProperties.String(),
		PoolMax:    prefix + SlotPoolMax.String(),
		PoolMin:    prefix + SlotPoolMin.String(),
	}, nil
}

// For returns the key of the given slot.
func (k Keys) For(slot Slot) string {
	switch slot {
	case SlotUnique:
		return k.Unique
	case SlotJNDIName:
		return k.JNDIName
	case SlotDriver:
		return k.Driver
	case SlotProperties:
		return k.Properties
	case SlotPoolMax:
		return k.PoolMax
	case SlotPoolMin:
		return k.PoolMin
	default:
		return ""
	}
}

// All returns the six keys, in slot order.
func (k Keys) All() []string {
	all := make([]string, 0, len(slotSuffixes))
	for _, slot := range Slots() {
		all = append(all, k.For(slot))
	}
	return all
}

// LookupKey returns the key the slot is resolved from, in the scope surrounding the module.
func (k Keys) LookupKey(slot Slot) inject.Key {
	return inject.NewKey(slot.Type(), inject.Named(k.For(slot)))
}
