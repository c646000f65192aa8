// Package application implements the join-the-club form: the typed
// application record, its validation and normalization, and the Controller
// that drives one visitor's join dialog from field edits to submission.
//
// Validation and normalization are pure functions:
//
//	errs := application.Validate(app)
//	payload := application.Normalize(app)
//
// The Controller binds them to a Submitter (the submission channel) and a
// Notifier (transient success/failure messages):
//
//	c := application.NewController(submitter, queue)
//	c.Open()
//	_ = c.SetField(application.FieldEmail, "ada@example.com")
//	_ = c.Toggle(application.FieldInterests, "ai", true)
//	out := c.Submit(ctx)
package application
