// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package specdef

// builtin holds definitions for form types that are stable across server
// releases, so they convert without a round trip to the server.
var builtin = map[string]string{
	"branch": "Branch;code:301;rq;ro;len:32;;" +
		"Update;code:302;type:date;ro;fmt:L;len:20;;" +
		"Access;code:303;type:date;ro;fmt:L;len:20;;" +
		"Owner;code:304;fmt:R;len:32;;" +
		"Description;code:306;type:text;len:128;;" +
		"Options;code:309;type:line;len:64;val:unlocked/locked;;" +
		"View;code:311;type:wlist;words:2;len:64;;",

	"change": "Change;code:201;rq;ro;fmt:L;seq:1;len:10;;" +
		"Date;code:202;type:date;ro;fmt:R;seq:3;len:20;;" +
		"Client;code:203;ro;fmt:L;seq:2;len:32;;" +
		"User;code:204;ro;fmt:L;seq:4;len:32;;" +
		"Status;code:205;ro;fmt:R;seq:5;len:10;;" +
		"Type;code:211;seq:6;type:select;fmt:L;len:10;val:public/restricted;;" +
		"Description;code:206;type:text;rq;seq:7;;" +
		"Jobs;code:208;type:wlist;seq:8;len:32;;" +
		"Files;code:210;type:llist;len:64;;",

	"client": "Client;code:301;rq;ro;seq:1;len:32;;" +
		"Update;code:302;type:date;ro;seq:2;fmt:L;len:20;;" +
		"Access;code:303;type:date;ro;seq:4;fmt:L;len:20;;" +
		"Owner;code:304;seq:3;fmt:R;len:32;;" +
		"Host;code:305;seq:5;fmt:R;len:32;;" +
		"Description;code:306;type:text;len:128;;" +
		"Root;code:307;rq;type:line;len:64;;" +
		"AltRoots;code:308;type:llist;len:64;;" +
		"Options;code:309;type:line;len:64;;" +
		"SubmitOptions;code:313;type:select;fmt:L;len:25;;" +
		"LineEnd;code:310;type:select;fmt:L;len:12;val:local/unix/mac/win/share;;" +
		"Stream;code:314;type:line;len:64;;" +
		"View;code:311;type:wlist;words:2;len:64;;",

	"depot": "Depot;code:251;rq;ro;len:32;;" +
		"Owner;code:252;len:32;;" +
		"Date;code:253;type:date;ro;len:20;;" +
		"Description;code:254;type:text;len:128;;" +
		"Type;code:255;rq;len:10;;" +
		"Address;code:256;len:64;;" +
		"Suffix;code:258;len:64;;" +
		"StreamDepth;code:260;len:64;;" +
		"Map;code:257;rq;len:64;;",

	"label": "Label;code:701;rq;ro;fmt:L;len:32;;" +
		"Update;code:702;type:date;ro;fmt:L;len:20;;" +
		"Access;code:703;type:date;ro;fmt:L;len:20;;" +
		"Owner;code:704;fmt:R;len:32;;" +
		"Description;code:705;type:text;len:128;;" +
		"Options;code:706;type:line;len:64;;" +
		"Revision;code:707;words:1;len:64;;" +
		"View;code:709;type:wlist;len:64;;",

	"user": "User;code:651;rq;ro;seq:1;len:32;;" +
		"Email;code:652;fmt:R;rq;seq:3;len:32;;" +
		"Update;code:653;fmt:L;type:date;ro;seq:2;len:20;;" +
		"Access;code:654;fmt:L;type:date;ro;len:20;;" +
		"FullName;code:655;fmt:R;type:line;rq;len:32;;" +
		"JobView;code:656;type:line;len:64;;" +
		"Password;code:657;len:32;;" +
		"Reviews;code:658;type:wlist;len:64;;",
}
