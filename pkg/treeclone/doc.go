// Package treeclone provides the library API for cloning a directory tree from
// one site to another and verifying the result.
//
// A Site pairs a storage backend with a root path. The caller builds both
// sites; the operators borrow them for one call and never close them.
//
// # Concurrency Safety
//
//   - A Client holds no per-call state and may be shared between goroutines.
//
//   - Two clones targeting the SAME destination must not run concurrently.
//     The treeclone CLI serializes them with a destination lock; library
//     callers must do the same.
//
//   - Verify only reads. It may run concurrently with other verifications.
//
// # Usage
//
//	src := treeclone.LocalSite("/data/in")
//	dst := treeclone.LocalSite("/data/out")
//	out, err := treeclone.CloneAndVerify(ctx, src, dst, treeclone.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	if !out.Report.Success {
//	    for _, p := range out.Report.Missing {
//	        fmt.Println("missing:", p)
//	    }
//	}
package treeclone
