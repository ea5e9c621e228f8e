package downsample

import (
	_ "unsafe" // for go:linkname
)

// github.com/grailbio/hts/sam linknames sync.fastrand, a symbol the Go
// runtime stopped exporting under that name (modern toolchains only export
// sync.fastrandn). The function itself, runtime.fastrand, still exists, so
// re-export it under the old name to keep hts linking without patching it.

//go:linkname htsCompatRuntimeFastrand runtime.fastrand
func htsCompatRuntimeFastrand() uint32

//go:linkname htsCompatSyncFastrand sync.fastrand
func htsCompatSyncFastrand() uint32 { return htsCompatRuntimeFastrand() }
