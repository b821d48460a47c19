package sqlinline

const QInsertStudyDeckEntry = `--sql ea9a4fa6-7f3c-4cbf-941e-6869e5ecfbf8
insert into study_deck (id, user_id, question_id, added_at)
values (gen_random_uuid(), $1::uuid, $2::uuid, now())
on conflict (user_id, question_id) do update set user_id = excluded.user_id
returning id;
`

const QDeleteStudyDeckEntry = `--sql f9632ae6-b26c-484a-b0e7-a03a1f60d488
delete from study_deck
where user_id = $1::uuid
  and question_id = $2::uuid;
`

const QSelectStudyDeck = `--sql c3a961a7-1e5b-468d-9186-76b48fabd128
select q.id, q.subject, q.question, q.options, q.correct_answer, q.explanation
from study_deck sd
join questions q on q.id = sd.question_id
where sd.user_id = $1::uuid
order by sd.added_at desc;
`

const QSelectStudyDeckRandom = `--sql 6f3e7846-0b57-457e-b253-985a020e2de4
select q.id, q.subject, q.question, q.options, q.correct_answer, q.explanation
from study_deck sd
join questions q on q.id = sd.question_id
where sd.user_id = $1::uuid
order by random()
limit $2::int;
`
