// Package cftemplate resolves Common Form templates into Common Form markup.
//
// A template is plain text with directives between (( and )):
//
//	\Payment\ The <Buyer> shall pay (( require terms/payment ))
//
// # Directives
//
// A SHA-256 digest inserts a form from the form service:
//
//	(( 543cd5e172cfc6b3c20a0d91855fea44b5bf2fd1da7bf6b7c69f2a2ab4d6b3e9 ))
//
// publisher/project@edition inserts a published form:
//
//	(( kemitchell/indemnity@1e ))
//
// require inserts a local file, trying target.cftemplate, target.cform and
// target.json in that order. Required templates are resolved recursively
// relative to their own directory:
//
//	(( require clauses/indemnity ))
//
// if and unless include a block depending on a variable:
//
//	(( if payingInCash begin ))Payment is due in cash.(( end ))
//	(( unless payingInCash begin ))Payment is due by wire.(( end ))
//
// Inserted forms are indented to the column of their directive, so a
// directive inside an indented child form stays part of that child.
//
// # Basic Usage
//
//	engine := cftemplate.MustNew()
//	markup, err := engine.Execute(ctx, template, "./templates", cftemplate.Context{
//	    "payingInCash": true,
//	})
//
// # Error Handling
//
// Errors are *cuserr.CustomError values. Invalid directives, failed
// requires and failed publication lookups carry the directive position:
//
//	if pos, ok := cftemplate.ErrorPosition(err); ok {
//	    // pos.Line, pos.Column
//	}
//
// # Configuration
//
//	fetcher, _ := cftemplate.OpenFetcher("filesystem", "/var/lib/commonform")
//	engine, _ := cftemplate.New(
//	    cftemplate.WithFetcher(fetcher),
//	    cftemplate.WithMaxDepth(16),
//	    cftemplate.WithPositionedErrors(true),
//	    cftemplate.WithLogger(logger),
//	)
//
// Wrap a remote fetcher to fetch each form once:
//
//	cached := cftemplate.NewCachedFetcher(fetcher, cftemplate.DefaultCacheConfig())
package cftemplate

// Version is the library version
const Version = "1.0.0"
