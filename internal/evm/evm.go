// Package evm models the target execution environment for IR generation:
// which features a given protocol version supports and the gas costs that
// feed into forwarded-gas computation for external calls.
package evm

import "fmt"

// Version identifies a protocol revision of the target environment.
type Version int

const (
	Homestead Version = iota
	TangerineWhistle
	SpuriousDragon
	Byzantium
	Constantinople
	Istanbul
	Berlin
	London
	Paris
	Shanghai
	Cancun
)

var versionNames = map[Version]string{
	Homestead:        "homestead",
	TangerineWhistle: "tangerineWhistle",
	SpuriousDragon:   "spuriousDragon",
	Byzantium:        "byzantium",
	Constantinople:   "constantinople",
	Istanbul:         "istanbul",
	Berlin:           "berlin",
	London:           "london",
	Paris:            "paris",
	Shanghai:         "shanghai",
	Cancun:           "cancun",
}

// Default is the version assumed when a project does not pin one.
const Default = Shanghai

// String returns the canonical lowercase name of the version.
func (v Version) String() string {
	if name, ok := versionNames[v]; ok {
		return name
	}
	return fmt.Sprintf("evm(%d)", int(v))
}

// Parse resolves a version by its canonical name.
func Parse(name string) (Version, error) {
	for v, n := range versionNames {
		if n == name {
			return v, nil
		}
	}
	return Default, fmt.Errorf("unknown EVM version %q", name)
}

// HasStaticCall reports whether the staticcall primitive exists.
func (v Version) HasStaticCall() bool { return v >= Byzantium }

// SupportsReturndata reports whether the environment can report the actual
// size of data returned by a call (returndatasize/returndatacopy).
func (v Version) SupportsReturndata() bool { return v >= Byzantium }

// CanOverchargeGasForCall reports whether forwarding all remaining gas to a
// call is safe, i.e. the environment caps the forwarded amount itself.
func (v Version) CanOverchargeGasForCall() bool { return v >= TangerineWhistle }

// HasPrevRandao reports whether the difficulty opcode has been replaced by
// the prevrandao read.
func (v Version) HasPrevRandao() bool { return v >= Paris }

// Gas costs used when computing a conservative forwarded-gas amount on
// targets that cannot forward all remaining gas.
const (
	// CallValueTransferGas is the surcharge for sending a nonzero value.
	CallValueTransferGas = 9000
	// CallNewAccountGas is the surcharge for touching a fresh account.
	CallNewAccountGas = 25000
)

// CallGasMargin is the slack retained by the caller on top of CallGas to
// cover the subtraction and call setup themselves. The figure is a
// conservative approximation; it is a variable so that embedders can tune it.
var CallGasMargin uint64 = 10

// CallGas returns the base cost of the call instruction under a version's
// fee schedule. Only the pre-TangerineWhistle figure feeds the conservative
// gas reserve; later versions forward all remaining gas instead.
func CallGas(v Version) uint64 {
	if v.CanOverchargeGasForCall() {
		return 700
	}
	return 40
}
