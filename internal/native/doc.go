// Package native checks compiled extension modules shipped by a dependency
// against the ABI and platform of the deployment target.
//
// Extension modules carry their build target in the filename, between the
// module stem and the library extension:
//
//	_multiarray_umath.cpython-312-x86_64-linux-gnu.so
//	_speedups.cp312-win_amd64.pyd
//	_cffi_backend.abi3.so
//
// Files without such a tag (plain shared libraries vendored next to the
// package) are not extension modules and are ignored.
package native
