// Package extractor turns the normalized text of one listing page into a
// model.ListingRecord.
//
// Every field is resolved on its own by an ordered RuleSet: the first rule in
// list order that matches anywhere in the text wins, regardless of where in
// the text its match sits. Fields that cannot be resolved take the value of
// the matching config.Sentinels entry, so Extract never fails.
//
// Unresolved fields are reported on the injected logger with the attributes
// field, outcome and url. The outcome is one of:
//
//   - expected_absence: the listing says the value is not published
//     (price on request, certification pending, parking on request)
//   - extraction_failure: nothing matched and no known phrase explains why
//   - threshold_rejection: a price was found but is below the minimum
//
// The fields follow different policies on purpose:
//
//   - cost has a hard minimum with no override
//   - energy class must pass a shape check before it is accepted
//   - floor combines a numeric rule with a ground floor override, and the
//     top floor flag is detected independently
//   - parking has three outcomes: counted, on request, or absent
//
// # Usage
//
//	ext := extractor.New(cfg, extractor.WithLogger(logger))
//	record := ext.Extract(htmltext.NormalizeLower(body), listingURL)
package extractor
