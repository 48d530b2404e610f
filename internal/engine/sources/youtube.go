package sources

// YouTube implementation is split across three files by responsibility:
//   youtube_innertube.go  : Innertube API types, constants, and low-level HTTP primitives
//   youtube_watch.go      : watch URL rules and watch page parsing (player response, meta tags)
//   youtube_transcript.go : transcript fetching (caption tracks, engagement panel, ANDROID player)
