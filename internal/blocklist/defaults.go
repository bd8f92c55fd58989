package blocklist

// DefaultDomains is the built-in ad and tracker blocklist. Subdomain
// matching applies, so "doubleclick.net" also covers
// "ads.doubleclick.net". Entries stay in this list even when the user
// overrides them; the override set is consulted at classification time.
var DefaultDomains = []string{
	"2mdn.net",
	"ad.gt",
	"adcolony.com",
	"adjust.com",
	"admob.com",
	"adnxs.com",
	"adsafeprotected.com",
	"adservice.google.com",
	"amazon-adsystem.com",
	"app-measurement.com",
	"applovin.com",
	"appsflyer.com",
	"branch.io",
	"chartboost.com",
	"criteo.com",
	"crashlytics.com",
	"doubleclick.net",
	"googleadservices.com",
	"googlesyndication.com",
	"googletagmanager.com",
	"google-analytics.com",
	"inmobi.com",
	"moatads.com",
	"mopub.com",
	"scorecardresearch.com",
	"unityads.unity3d.com",
	"vungle.com",
}
