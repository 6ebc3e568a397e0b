// Package uploadguard decides whether an uploaded file may be stored, and if
// so, under which name and folder.
//
// Every upload is an [Attempt]: a body plus what the caller claims about it
// (filename, declared MIME type, declared size, requested folder) and a
// caller identifier. None of the claims are trusted. An [Intake] runs the
// attempt through a fixed sequence of stages and returns a [Verdict]:
//
//	rate_limit     at most N attempts per caller per window
//	filename       no dangerous extension in any part of the name
//	declared_size  declared size within the ceiling for the declared type
//	read           body read without passing that ceiling
//	detect         type identified from magic bytes
//	mime           declared type agrees with the detected type
//	scan           no script or code-injection markers in the head
//	identifiers    stored name generated, folder whitelisted
//
// The first failing stage ends evaluation. Rejections carry a stable
// [Reason] code and a generic message that is safe to return to uploaders;
// the rule that actually fired is only available through
// [Rejection.Detail] and the log.
//
// # Basic Usage
//
//	intake := uploadguard.NewIntake(nil)
//
//	v := intake.Evaluate(uploadguard.Attempt{
//	    Body:     r.Body,
//	    Size:     r.ContentLength,
//	    Filename: header.Filename,
//	    MIMEType: header.Header.Get("Content-Type"),
//	    Folder:   r.FormValue("folder"),
//	    CallerID: ratelimit.CallerID(r, true),
//	})
//	if !v.Accepted {
//	    http.Error(w, v.Rejection.Message, http.StatusUnprocessableEntity)
//	    return
//	}
//	// v.Path() is "<folder>/<timestamp>_<hex>.<ext>"
//
// # Storing Accepted Uploads
//
// A [GuardedStore] writes the validated bytes of accepted uploads to a
// [Store] under the verdict's path, with the detected content type and a
// checksum in the metadata. Stores are provided by driver packages that
// register themselves on import:
//
//	import _ "github.com/gobeaver/uploadguard/driver/local"
//	import _ "github.com/gobeaver/uploadguard/driver/memory"
//
// # Configuration
//
// [Config] is loaded from BEAVER_UPLOADGUARD_* environment variables:
//
//	svc, err := uploadguard.NewFromEnv()
//	v, err := svc.Guard.Save(ctx, attempt)
//
// The HTTP handler lives in the httpintake package and the command line tool
// in cmd/uploadguard.
package uploadguard
