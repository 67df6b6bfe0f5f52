// Package redditstream turns Reddit's listing API into a continuous stream of
// new posts and comments across one or more subreddits.
//
// The package authenticates with Reddit using the OAuth2 password grant,
// verifies the credentials with a "who am I" call, and then exposes new
// activity as a pull-based sequence that survives network blips, rate limits,
// and transient server errors without operator intervention. Access problems
// (private or missing subreddits) and credential rejections are surfaced
// immediately as typed errors; everything else is retried with capped
// exponential backoff and jitter.
//
// Basic usage:
//
//	creds := &redditstream.Credentials{
//		ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
//		ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
//		UserAgent:    os.Getenv("REDDIT_USER_AGENT"),
//		Username:     os.Getenv("REDDIT_USERNAME"),
//		Password:     os.Getenv("REDDIT_PASSWORD"),
//	}
//
//	session, err := redditstream.Authenticate(ctx, creds, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	stream := session.Stream([]string{"golang", "programming"}, nil)
//	for {
//		item, err := stream.Next(ctx)
//		if err != nil {
//			log.Fatal(err) // terminal: auth, access, or cancellation
//		}
//		fmt.Println(item.Subreddit, item.URL())
//	}
//
// Within one drain round posts are yielded before comments; across rounds no
// total order relative to wall-clock arrival is guaranteed.
package redditstream
