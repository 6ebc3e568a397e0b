// Package filevalidator provides the cheap, local checks an upload has to pass
// before it is stored. None of them trust the uploader: the declared name,
// declared MIME type and bytes are all assumed hostile.
//
// The package is stateless and has no dependencies outside the standard
// library. Rate limiting and sequencing live in the parent uploadguard package.
//
// # Checks
//
//   - Filename: every dot-separated part is compared against an extension
//     denylist, so "shell.php.jpg" is refused just like "shell.php".
//   - Size: declared size against a ceiling chosen by declared MIME type
//     (PDFs get a larger one).
//   - Type: leading magic bytes against an ordered [Registry] of signatures.
//     Container formats carry a secondary check (WebP must say "WEBP" inside
//     its RIFF header).
//   - MIME: the declared type must be one the detected signature accepts.
//   - Content: the first 10,000 bytes are scanned for script tags, template
//     delimiters and code-execution calls.
//   - Folder: declared folders map onto a whitelist, with a fallback token
//     for anything else. This never fails.
//   - Naming: stored names are "<unix-ms>_<random hex>.<canonical ext>".
//
// # Quick Start
//
//	v := filevalidator.NewDefault()
//	sig, err := v.ValidateBytes(data, "photo.jpg", "image/jpeg")
//	if err != nil {
//	    switch filevalidator.GetErrorType(err) {
//	    case filevalidator.ErrorTypeMIME:
//	        // declared type does not match content
//	    }
//	}
//	name, _ := v.GenerateName(sig) // 1718000000000_9f2c4e1a7b3d5f60.jpg
//
// Using the builder API:
//
//	v := filevalidator.NewBuilder().
//	    MaxSize(2 * filevalidator.MB).
//	    BlockExtensions("swf").
//	    Folders("general", "news", "events").
//	    Build()
//
// # Adding a format
//
// Signatures are tried in order and the first match wins. To support another
// type, extend the registry instead of touching call sites:
//
//	bmp := filevalidator.Signature{
//	    Type:      "bmp",
//	    Magic:     [][]byte{[]byte("BM")},
//	    Extension: "bmp",
//	    MIMETypes: []string{"image/bmp"},
//	}
//	v := filevalidator.NewBuilder().AddSignatures(bmp).Build()
//
// # Error Handling
//
// Failures are [*ValidationError] values carrying a [ValidationErrorType].
// Their messages name the exact rule that fired and belong in logs, not in
// responses to the uploader.
package filevalidator
