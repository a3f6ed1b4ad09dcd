package year

// Bucket is a historical-era label derived from a normalized year.
type Bucket string

// Era labels in chronological order.
const (
	BucketUnknown     Bucket = "unknown"
	BucketPre1900     Bucket = "pre-1900"
	Bucket1900to1919  Bucket = "1900-1919"
	Bucket1920to1944  Bucket = "1920-1944"
	Bucket1945to1959  Bucket = "1945-1959"
	Bucket1960to1979  Bucket = "1960-1979"
	Bucket1980to1999  Bucket = "1980-1999"
	Bucket2000to2009  Bucket = "2000-2009"
	Bucket2010Present Bucket = "2010-present"
)

// boundaries holds half-open upper bounds, checked in order. Years at or
// above the last bound fall into Bucket2010Present.
var boundaries = [...]struct {
	before int
	bucket Bucket
}{
	{1900, BucketPre1900},
	{1920, Bucket1900to1919},
	{1945, Bucket1920to1944},
	{1960, Bucket1945to1959},
	{1980, Bucket1960to1979},
	{2000, Bucket1980to1999},
	{2010, Bucket2000to2009},
}

// AssignBucket returns the era label for y. A year exactly on a boundary
// belongs to the era starting there (1920 -> "1920-1944").
func AssignBucket(y Year) Bucket {
	if y == Unknown {
		return BucketUnknown
	}
	for _, b := range boundaries {
		if int(y) < b.before {
			return b.bucket
		}
	}
	return Bucket2010Present
}

// Buckets returns every label, Unknown first, then chronological.
func Buckets() []Bucket {
	out := make([]Bucket, 0, len(boundaries)+2)
	out = append(out, BucketUnknown)
	for _, b := range boundaries {
		out = append(out, b.bucket)
	}
	return append(out, Bucket2010Present)
}

// String implements fmt.Stringer.
func (b Bucket) String() string {
	return string(b)
}
