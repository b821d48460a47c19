package sqlinline

const QInsertQuestionReport = `--sql 58c8d8ba-d8f4-4804-a018-ff7978757a18
with report as (
    insert into reported_questions (id, question_id, user_id, reason, reported_at, reviewed)
    values (gen_random_uuid(), $1::uuid, $2::uuid, $3::text, now(), false)
    returning id, question_id
)
update questions q
set reported_count = q.reported_count + 1
from report r
where q.id = r.question_id
returning r.id;
`

const QSelectPendingReports = `--sql f12445a5-9c92-437a-9efc-b91f0b747dbf
select r.id, r.question_id, coalesce(r.user_id::text, ''), coalesce(r.reason, ''), r.reported_at, q.subject, q.question
from reported_questions r
join questions q on q.id = r.question_id
where not r.reviewed
order by r.reported_at desc;
`

const QMarkReportReviewed = `--sql ef308446-6ca4-4a58-bf04-81a7ee2c9813
update reported_questions
set reviewed = true
where id = $1::uuid;
`
