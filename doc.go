// Package planprint captures planning views to PNG images with an external
// renderer.
//
// # Quick Start
//
// Create a printer, mount its callback registry on the serving router and
// print from a request handler:
//
//	p, err := planprint.NewPrinter(
//	    planprint.WithWebRoot("/srv/planner"),
//	    planprint.WithViewHandler(fwd.Handler),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	r := chi.NewRouter()
//	r.Get(p.Registry().Pattern(), p.Registry().ServeHTTP)
//
//	res, err := p.PrintOrder(req.Context(), "42", map[string]string{"labels": "all"}, nil)
//	http.Redirect(w, req, res.Path, http.StatusSeeOther)
//
// # Capture Pipeline
//
// Each Print call goes through these stages:
//
//  1. Layout metrics from the planner geometry (width, task count, height)
//  2. A print*.css overlay: the base stylesheet plus width, toggle, height
//     and column rules, removed once the capture is done
//  3. A single-use callback URL whose handler runs with the caller's locale
//     and principal
//  4. The renderer, fed --url, --height, --width, --delay, --css and
//     --output, supervised with a hard timeout
//  5. Publication of <webroot>/print/<uuid>.png or an S3 upload
//
// # Renderers
//
// The default backend executes wk2img in its own process group. Timed-out
// renderers are killed by group; WithKillMode(KillByName) restores killing
// every process named after the binary. WithBackend(BackendRod) captures
// with headless Chrome through go-rod instead.
//
// # Known Limitations
//
// The capture height is fixed at DefaultCaptureHeight, so long plans are cut
// off. WithComputedHeight sizes it from the task count instead.
package planprint
