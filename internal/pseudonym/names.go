package pseudonym

// Name and street pools for type-realistic pseudonyms. Selection is driven
// by the HMAC digest, so pool order matters: reordering a list changes
// every pseudonym minted from it.

var maleFirstNames = []string{
	"James", "Robert", "John", "Michael", "David", "William", "Richard",
	"Joseph", "Thomas", "Christopher", "Charles", "Daniel", "Matthew",
	"Anthony", "Mark", "Donald", "Steven", "Andrew", "Paul", "Joshua",
	"Kenneth", "Kevin", "Brian", "Timothy", "Ronald", "George", "Jason",
	"Edward", "Jeffrey", "Ryan", "Jacob", "Nicholas", "Gary", "Eric",
	"Jonathan", "Stephen", "Larry", "Justin", "Scott", "Brandon",
}

var femaleFirstNames = []string{
	"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Barbara",
	"Susan", "Jessica", "Karen", "Sarah", "Lisa", "Nancy", "Sandra",
	"Betty", "Ashley", "Emily", "Kimberly", "Margaret", "Donna",
	"Michelle", "Carol", "Amanda", "Melissa", "Deborah", "Stephanie",
	"Rebecca", "Sharon", "Laura", "Cynthia", "Dorothy", "Amy", "Kathleen",
	"Angela", "Shirley", "Brenda", "Emma", "Anna", "Pamela", "Nicole",
	"Samantha",
}

var surnames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
	"Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
	"Lee", "Perez", "Thompson", "White", "Harris", "Sanchez", "Clark",
	"Ramirez", "Lewis", "Robinson", "Walker", "Young", "Allen", "King",
	"Wright", "Scott", "Torres", "Nguyen", "Hill", "Flores", "Green",
	"Adams", "Nelson", "Baker", "Hall", "Rivera", "Campbell", "Mitchell",
	"Carter", "Roberts", "Gomez", "Phillips", "Evans", "Turner", "Diaz",
	"Parker", "Cruz", "Edwards", "Collins", "Reyes",
}

var streetNames = []string{
	"Oak", "Maple", "Cedar", "Pine", "Elm", "Washington", "Lake", "Hill",
	"Walnut", "Spring", "Park", "Main", "Chestnut", "Highland", "Sunset",
	"Willow", "Meadow", "Forest", "River", "Ridge", "Valley", "Franklin",
	"Madison", "Jefferson", "Lincoln", "Sycamore", "Magnolia", "Juniper",
}

var streetSuffixes = []string{
	"Street", "Avenue", "Drive", "Lane", "Road", "Court", "Boulevard",
	"Place", "Way", "Terrace",
}

var cityNames = []string{
	"Springfield", "Franklin", "Clinton", "Greenville", "Bristol",
	"Fairview", "Salem", "Madison", "Georgetown", "Arlington", "Ashland",
	"Burlington", "Manchester", "Oxford", "Clayton", "Milton", "Auburn",
	"Dayton", "Lexington", "Milford",
}

var stateCodes = []string{
	"CA", "TX", "FL", "NY", "PA", "IL", "OH", "GA", "NC", "MI", "NJ",
	"VA", "WA", "AZ", "MA", "TN", "IN", "MO", "MD", "WI", "CO", "MN",
	"SC", "AL", "LA", "KY", "OR", "OK", "CT", "UT",
}
